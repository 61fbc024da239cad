package hfinference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// maxInputChars bounds the payload sent to the inference endpoint
const maxInputChars = 500

// probeText is the fixed dummy payload used by TestConnection
const probeText = "Hello, this is a connection test."

var (
	// ErrModelGone signals a permanently unavailable (deprecated or
	// removed) model; the client fails over to the next one.
	ErrModelGone = errors.New("model permanently unavailable")

	// ErrAllModelsExhausted is returned when failover has tried every
	// configured model without success.
	ErrAllModelsExhausted = errors.New("all configured models exhausted")

	// ErrTransport signals a transient transport or protocol failure;
	// the active model is kept and may be retried on the next call.
	ErrTransport = errors.New("transport error")
)

// Doer abstracts the HTTP round-trip so failover and normalization can be
// tested with scripted responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements the RemoteClassifier interface against a hosted
// inference endpoint with a prioritized list of classification models.
type Client struct {
	doer   Doer
	models []core.ModelDescriptor
	state  *core.RemoteState
	logger *zap.Logger
}

// NewClient creates a new inference client
func NewClient(doer Doer, models []core.ModelDescriptor, state *core.RemoteState, logger *zap.Logger) (*Client, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one classification model must be configured")
	}
	return &Client{
		doer:   doer,
		models: models,
		state:  state,
		logger: logger,
	}, nil
}

// inferenceRequest is the request body sent to the endpoint
type inferenceRequest struct {
	Inputs  string           `json:"inputs"`
	Options inferenceOptions `json:"options"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

// prediction is one label/score pair in a model response
type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends text to the active model and normalizes its response.
// On a permanent-gone answer it advances to the next model and retries,
// bounded by one pass over the configured list; the loop never recurses,
// so termination does not depend on list size.
func (c *Client) Classify(ctx context.Context, text string) (*core.ClassificationResult, error) {
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	idx := c.state.ActiveModel()
	if idx < 0 || idx >= len(c.models) {
		idx = 0
	}

	for attempt := 0; attempt < len(c.models); attempt++ {
		model := c.models[idx]
		preds, err := c.query(ctx, model, text)
		if err == nil {
			c.state.SetActiveModel(idx)
			return normalize(preds, model.Name), nil
		}
		if errors.Is(err, ErrModelGone) {
			c.logger.Warn("Classification model gone, failing over",
				zap.String("model", model.Name),
				zap.Error(err))
			idx = (idx + 1) % len(c.models)
			c.state.SetActiveModel(idx)
			continue
		}
		// Transient: keep the active model for the next call.
		return nil, err
	}

	return nil, ErrAllModelsExhausted
}

// TestConnection probes every model once in priority order with a fixed
// dummy payload and records the first healthy one. It walks its own loop
// variable so real-request failover state is not consumed.
func (c *Client) TestConnection(ctx context.Context) error {
	for i, model := range c.models {
		if _, err := c.query(ctx, model, probeText); err != nil {
			c.logger.Debug("Model probe failed",
				zap.String("model", model.Name),
				zap.Error(err))
			continue
		}
		c.state.SetActiveModel(i)
		c.state.SetAvailable(true)
		c.logger.Info("Remote classification available",
			zap.String("model", model.Name),
			zap.Int("model_index", i))
		return nil
	}

	c.state.SetAvailable(false)
	return fmt.Errorf("no classification model reachable: %w", ErrAllModelsExhausted)
}

// query performs a single classification request against one model
func (c *Client) query(ctx context.Context, model core.ModelDescriptor, text string) ([]prediction, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs: text,
		Options: inferenceOptions{
			WaitForModel: true,  // wait for a cold model to warm up
			UseCache:     false, // force fresh inference
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, model.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cred := c.state.Credential(); cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		// Hosted hubs answer 410 or 404 for deprecated/removed models.
		return nil, fmt.Errorf("%w: %s returned status %d", ErrModelGone, model.Name, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned status %d", ErrTransport, model.Name, resp.StatusCode)
	}

	return parsePredictions(respBody), nil
}

// parsePredictions decodes a prediction list that may be nested one level.
// Unexpected shapes yield an empty list rather than an error.
func parsePredictions(body []byte) []prediction {
	var flat []prediction
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat
	}

	var nested [][]prediction
	if err := json.Unmarshal(body, &nested); err == nil {
		var out []prediction
		for _, group := range nested {
			out = append(out, group...)
		}
		return out
	}

	return nil
}

var positiveLabels = map[string]bool{
	"spam":     true,
	"phishing": true,
	"1":        true,
	"label_1":  true,
}

var negativeLabels = map[string]bool{
	"ham":     true,
	"safe":    true,
	"0":       true,
	"label_0": true,
}

// normalize folds heterogeneous model outputs into a single result. A
// positive-class prediction wins; otherwise the phishing probability is
// derived from the negative class. Unrecognized labels degrade to SAFE/0.
func normalize(preds []prediction, modelName string) *core.ClassificationResult {
	for _, p := range preds {
		if positiveLabels[strings.ToLower(p.Label)] {
			return &core.ClassificationResult{
				PhishingScore: p.Score * 100,
				Confidence:    p.Score * 100,
				Label:         core.LabelPhishing,
				ModelUsed:     modelName,
			}
		}
	}
	for _, p := range preds {
		if negativeLabels[strings.ToLower(p.Label)] {
			return &core.ClassificationResult{
				PhishingScore: (1 - p.Score) * 100,
				Confidence:    p.Score * 100,
				Label:         core.LabelSafe,
				ModelUsed:     modelName,
			}
		}
	}
	return &core.ClassificationResult{
		Label:     core.LabelSafe,
		ModelUsed: modelName,
	}
}

package hfinference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// scriptedDoer replays a fixed response sequence and records every request
type scriptedDoer struct {
	responses []scriptedResponse
	requests  []recordedRequest
}

type scriptedResponse struct {
	status int
	body   string
	err    error
}

type recordedRequest struct {
	url    string
	auth   string
	inputs string
	opts   inferenceOptions
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	var parsed inferenceRequest
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		json.Unmarshal(raw, &parsed)
	}
	d.requests = append(d.requests, recordedRequest{
		url:    req.URL.String(),
		auth:   req.Header.Get("Authorization"),
		inputs: parsed.Inputs,
		opts:   parsed.Options,
	})

	if len(d.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	next := d.responses[0]
	d.responses = d.responses[1:]

	if next.err != nil {
		return nil, next.err
	}
	return &http.Response{
		StatusCode: next.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(next.body))),
	}, nil
}

func testModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{
		{Name: "primary-model", Endpoint: "https://inference.test/models/primary-model", Kind: core.ModelKindClassification},
		{Name: "backup-model", Endpoint: "https://inference.test/models/backup-model", Kind: core.ModelKindClassification},
	}
}

func newTestClient(t *testing.T, doer *scriptedDoer, state *core.RemoteState) *Client {
	t.Helper()
	client, err := NewClient(doer, testModels(), state, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient_RequiresModels(t *testing.T) {
	if _, err := NewClient(&scriptedDoer{}, nil, core.NewRemoteState(""), zap.NewNop()); err == nil {
		t.Error("Expected error for empty model list")
	}
}

func TestClassify_RequestShape(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `[{"label":"spam","score":0.9}]`},
	}}
	state := core.NewRemoteState("secret-token")
	client := newTestClient(t, doer, state)

	long := strings.Repeat("a", 600)
	if _, err := client.Classify(context.Background(), long); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	req := doer.requests[0]
	if req.url != "https://inference.test/models/primary-model" {
		t.Errorf("Unexpected endpoint: %s", req.url)
	}
	if req.auth != "Bearer secret-token" {
		t.Errorf("Expected bearer auth header, got %q", req.auth)
	}
	if len(req.inputs) != maxInputChars {
		t.Errorf("Expected inputs truncated to %d chars, got %d", maxInputChars, len(req.inputs))
	}
	if !req.opts.WaitForModel || req.opts.UseCache {
		t.Errorf("Expected wait_for_model=true use_cache=false, got %+v", req.opts)
	}
}

func TestClassify_FailoverOnGoneModel(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: http.StatusGone, body: ""},
		{status: 200, body: `[{"label":"spam","score":0.92}]`},
	}}
	state := core.NewRemoteState("token")
	client := newTestClient(t, doer, state)

	result, err := client.Classify(context.Background(), "claim your prize")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.ModelUsed != "backup-model" {
		t.Errorf("Expected result from backup-model, got %s", result.ModelUsed)
	}
	if state.ActiveModel() != 1 {
		t.Errorf("Expected sticky index 1 after failover, got %d", state.ActiveModel())
	}
	if len(doer.requests) != 2 {
		t.Errorf("Expected 2 requests, got %d", len(doer.requests))
	}
}

func TestClassify_StickyIndexReused(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: 200, body: `[{"label":"ham","score":0.8}]`},
	}}
	state := core.NewRemoteState("token")
	state.SetActiveModel(1)
	client := newTestClient(t, doer, state)

	if _, err := client.Classify(context.Background(), "hello"); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if doer.requests[0].url != "https://inference.test/models/backup-model" {
		t.Errorf("Expected call to the sticky model, got %s", doer.requests[0].url)
	}
}

func TestClassify_AllModelsGone(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: http.StatusGone},
		{status: http.StatusNotFound},
	}}
	state := core.NewRemoteState("token")
	client := newTestClient(t, doer, state)

	_, err := client.Classify(context.Background(), "test")
	if !errors.Is(err, ErrAllModelsExhausted) {
		t.Errorf("Expected ErrAllModelsExhausted, got %v", err)
	}
	if len(doer.requests) != 2 {
		t.Errorf("Expected exactly one pass over the model list, got %d requests", len(doer.requests))
	}
}

func TestClassify_TransientErrorKeepsActiveModel(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: http.StatusInternalServerError},
	}}
	state := core.NewRemoteState("token")
	client := newTestClient(t, doer, state)

	_, err := client.Classify(context.Background(), "test")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
	if state.ActiveModel() != 0 {
		t.Errorf("Transient failure must not advance the model index, got %d", state.ActiveModel())
	}
	if len(doer.requests) != 1 {
		t.Errorf("Expected 1 request, got %d", len(doer.requests))
	}
}

func TestClassify_NetworkErrorIsTransport(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{err: errors.New("connection refused")},
	}}
	client := newTestClient(t, doer, core.NewRemoteState("token"))

	_, err := client.Classify(context.Background(), "test")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport for a network error, got %v", err)
	}
}

func TestClassify_Normalization(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantScore float64
		wantConf  float64
		wantLabel core.Label
	}{
		{"flat positive", `[{"label":"LABEL_1","score":0.93}]`, 93, 93, core.LabelPhishing},
		{"nested negative", `[[{"label":"ham","score":0.88},{"label":"spam","score":0.12}]]`, 12, 12, core.LabelPhishing},
		{"negative only", `[{"label":"safe","score":0.75}]`, 25, 75, core.LabelSafe},
		{"unknown labels", `[{"label":"neutral","score":0.5}]`, 0, 0, core.LabelSafe},
		{"empty response", `[]`, 0, 0, core.LabelSafe},
		{"malformed body", `{"error":"loading"}`, 0, 0, core.LabelSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &scriptedDoer{responses: []scriptedResponse{{status: 200, body: tt.body}}}
			client := newTestClient(t, doer, core.NewRemoteState("token"))

			result, err := client.Classify(context.Background(), "test")
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if result.PhishingScore != tt.wantScore {
				t.Errorf("PhishingScore = %.2f, want %.2f", result.PhishingScore, tt.wantScore)
			}
			if result.Confidence != tt.wantConf {
				t.Errorf("Confidence = %.2f, want %.2f", result.Confidence, tt.wantConf)
			}
			if result.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", result.Label, tt.wantLabel)
			}
		})
	}
}

func TestTestConnection_RecordsFirstHealthyModel(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: http.StatusGone},
		{status: 200, body: `[{"label":"ham","score":0.9}]`},
	}}
	state := core.NewRemoteState("token")
	client := newTestClient(t, doer, state)

	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if !state.Available() {
		t.Error("Expected availability to be recorded")
	}
	if state.ActiveModel() != 1 {
		t.Errorf("Expected first healthy index 1, got %d", state.ActiveModel())
	}
	if doer.requests[0].inputs != probeText || doer.requests[1].inputs != probeText {
		t.Error("Expected the fixed probe payload on every probe request")
	}
}

func TestTestConnection_AllUnreachable(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{status: http.StatusServiceUnavailable},
		{err: errors.New("timeout")},
	}}
	state := core.NewRemoteState("token")
	state.SetAvailable(true)
	client := newTestClient(t, doer, state)

	err := client.TestConnection(context.Background())
	if !errors.Is(err, ErrAllModelsExhausted) {
		t.Errorf("Expected ErrAllModelsExhausted, got %v", err)
	}
	if state.Available() {
		t.Error("Expected availability to be cleared when no model answers")
	}
}

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxInputChars bounds the email text included in the prompt
const maxInputChars = 500

// Client is an implementation of the RemoteClassifier interface that asks
// an OpenAI chat model for a structured phishing verdict.
type Client struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	state       *core.RemoteState
	logger      *zap.Logger
}

// verdictResponse is the structured response requested from the model
type verdictResponse struct {
	PhishingScore float64 `json:"phishing_score"`
	Confidence    float64 `json:"confidence"`
	Label         string  `json:"label"`
}

const promptFormat = `You are a phishing detection system. Analyze the following email and respond with a JSON object containing:
- phishing_score: number between 0 and 100 (higher means more likely phishing)
- confidence: number between 0 and 100 (how confident you are)
- label: "PHISHING" or "SAFE"

Email:
%s

Respond only with the JSON object and nothing else.`

// NewClient creates a new OpenAI classifier
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	state *core.RemoteState,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		state:       state,
		logger:      logger,
	}
}

// Classify asks the chat model for a phishing verdict on the given text
func (c *Client) Classify(ctx context.Context, text string) (*core.ClassificationResult, error) {
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(promptFormat, text),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	label := core.LabelSafe
	if strings.EqualFold(verdict.Label, string(core.LabelPhishing)) {
		label = core.LabelPhishing
	}

	return &core.ClassificationResult{
		PhishingScore: clamp(verdict.PhishingScore),
		Confidence:    clamp(verdict.Confidence),
		Label:         label,
		ModelUsed:     c.modelName,
	}, nil
}

// TestConnection issues a minimal completion to verify the credential and
// model are usable, and records the result in the session state.
func (c *Client) TestConnection(ctx context.Context) error {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
		MaxTokens: 1,
	}
	if _, err := c.client.CreateChatCompletion(ctx, req); err != nil {
		c.state.SetAvailable(false)
		return fmt.Errorf("OpenAI connection test failed: %w", err)
	}
	c.state.SetActiveModel(0)
	c.state.SetAvailable(true)
	return nil
}

// parseVerdict decodes the model's JSON reply, tolerating stray text
// around the object.
func parseVerdict(content string) (*verdictResponse, error) {
	var verdict verdictResponse
	if err := json.Unmarshal([]byte(content), &verdict); err == nil {
		return &verdict, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &verdict, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Package llm wraps the Gemini SDK behind the text-generation contract the
// pipeline stages depend on. Provider-level failures surface as typed errors,
// never as empty content.
package llm

import (
	"context"
	"errors"
	"fmt"

	"longform/internal/config"

	"google.golang.org/genai"
)

const (
	// DefaultReasoningModel handles outline and enhancement work.
	DefaultReasoningModel = "gemini-2.5-pro"
	// DefaultThroughputModel handles long draft generation.
	DefaultThroughputModel = "gemini-2.5-flash"
	// DefaultFastModel handles cheap metadata extraction.
	DefaultFastModel = "gemini-flash-lite-latest"
)

// Profile selects a generation-service tier appropriate to a stage's task.
type Profile string

const (
	ProfileReasoning  Profile = "reasoning"
	ProfileThroughput Profile = "throughput"
	ProfileFast       Profile = "fast"
)

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("empty response from model")

// ProviderError wraps an upstream provider failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerateRequest describes one text-generation call.
type GenerateRequest struct {
	Prompt          string
	Profile         Profile
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
	PreferredModel  string // Overrides profile-based selection when set
}

// GenerateResult is the outcome of one text-generation call.
type GenerateResult struct {
	Content    string
	Provider   string // Model that produced the content
	TokensUsed int
	Cost       float64
}

// costPer1KTokens is an approximate blended cost table in USD.
var costPer1KTokens = map[string]float64{
	DefaultReasoningModel:  0.00625,
	DefaultThroughputModel: 0.001,
	DefaultFastModel:       0.0003,
}

// Client is a Gemini-backed text generation client.
type Client struct {
	gClient *genai.Client
	models  map[Profile]string
}

// NewClient creates a new LLM client from configuration.
// The API key comes from config, which already falls back to GEMINI_API_KEY.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in config")
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	models := map[Profile]string{
		ProfileReasoning:  cfg.ReasoningModel,
		ProfileThroughput: cfg.ThroughputModel,
		ProfileFast:       cfg.FastModel,
	}
	if models[ProfileReasoning] == "" {
		models[ProfileReasoning] = DefaultReasoningModel
	}
	if models[ProfileThroughput] == "" {
		models[ProfileThroughput] = DefaultThroughputModel
	}
	if models[ProfileFast] == "" {
		models[ProfileFast] = DefaultFastModel
	}

	return &Client{
		gClient: gClient,
		models:  models,
	}, nil
}

// ModelForProfile resolves a profile to its configured model name.
func (c *Client) ModelForProfile(profile Profile) string {
	if model, ok := c.models[profile]; ok {
		return model
	}
	return c.models[ProfileThroughput]
}

// Generate produces text for the given request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	model := req.PreferredModel
	if model == "" {
		model = c.ModelForProfile(req.Profile)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(req.TopP)
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, &ProviderError{Provider: model, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return nil, &ProviderError{Provider: model, Err: ErrEmptyResponse}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &GenerateResult{
		Content:    text,
		Provider:   model,
		TokensUsed: tokens,
		Cost:       EstimateCost(model, tokens),
	}, nil
}

// EstimateCost converts a token count into an approximate USD cost.
func EstimateCost(model string, tokens int) float64 {
	rate, ok := costPer1KTokens[model]
	if !ok {
		rate = costPer1KTokens[DefaultThroughputModel]
	}
	return float64(tokens) / 1000.0 * rate
}

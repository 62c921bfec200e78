// Package textgen generates alert text with Gemini, rate limited so a burst of alerts cannot exhaust
// the API quota.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var (
	// ErrRateLimited is returned when the local limiter or the API rejects a request for quota.
	ErrRateLimited = errors.New("textgen: rate limited")
	// ErrEmptyResponse is returned when the model answered without text.
	ErrEmptyResponse = errors.New("textgen: empty response")
)

// ModelClient is the subset of the genai Models service used here.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator produces alert text.
type Generator struct {
	models  ModelClient
	model   string
	limiter *rate.Limiter
}

// New returns a generator over models. requestsPerMinute <= 0 disables local limiting.
func New(models ModelClient, model string, requestsPerMinute int) *Generator {
	return &Generator{models: models, model: model, limiter: newLimiter(requestsPerMinute)}
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, requestsPerMinute int) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("textgen: api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: client: %w", err)
	}
	return New(client.Models, model, requestsPerMinute), nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Generate returns the model's text for prompt. It never waits for the limiter.
func (g *Generator) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if !g.limiter.Allow() {
		return "", ErrRateLimited
	}
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("textgen: generate: %w", err)
	}
	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

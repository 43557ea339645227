package extract

import (
	"context"

	"github.com/sells-group/procurement-leads/pkg/anthropic"
	"github.com/sells-group/procurement-leads/pkg/gemini"
)

// Generator submits an instruction plus text to a generative model and
// returns its raw reply.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiGenerator generates with Google Gemini.
type GeminiGenerator struct {
	client gemini.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(client gemini.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate implements Generator. Replies are requested as JSON at
// temperature 0.
func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Generate(ctx, gemini.Request{
		Model:  g.model,
		System: system,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AnthropicGenerator generates with Anthropic Claude.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a Claude-backed generator.
func NewAnthropicGenerator(client anthropic.Client, model string, maxTokens int64) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicGenerator{client: client, model: model, maxTokens: maxTokens}
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return "anthropic" }

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	temp := 0.0
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(g.model, "extract")
	return resp.Text(), nil
}

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/procurement-leads/internal/acquire"
	"github.com/sells-group/procurement-leads/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM:      config.LLMConfig{Provider: config.ProviderGemini},
		Gemini:   config.GeminiConfig{Key: "test-key", Model: "gemini-2.5-flash"},
		Registry: config.RegistryConfig{RatePerSec: 3, MaxAttempts: 2, FailureThreshold: 5, ResetTimeoutSecs: 30, TimeoutSecs: 5},
		Acquire:  config.AcquireConfig{HTMLStrategy: config.StrategyStatic},
		OCR:      config.OCRConfig{Provider: "local"},
		Extract:  config.ExtractConfig{MaxInputChars: 50000, MinInputChars: 20, ExplicitExclusion: true},
		Pipeline: config.PipelineConfig{ReferenceConcurrency: 1, RecordConcurrency: 4},
	}
}

func TestInitPipeline_Gemini(t *testing.T) {
	cfg = testConfig()

	p, err := initPipeline(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)

	gen, err := initGenerator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini", gen.Name())
}

func TestInitPipeline_Anthropic(t *testing.T) {
	cfg = testConfig()
	cfg.LLM.Provider = config.ProviderAnthropic
	cfg.Anthropic = config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001", MaxTokens: 4096}

	p, err := initPipeline(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)

	gen, err := initGenerator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", gen.Name())
}

func TestInitPipeline_MissingCredential(t *testing.T) {
	cfg = testConfig()
	cfg.Gemini.Key = ""

	p, err := initPipeline(context.Background())
	assert.Nil(t, p)

	var ce *config.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "gemini.key", ce.Field)
}

func TestInitPipeline_BadOCRProvider(t *testing.T) {
	cfg = testConfig()
	cfg.OCR.Provider = "tesseract"

	_, err := initPipeline(context.Background())
	assert.ErrorContains(t, err, "init ocr")
}

func TestInitRenderer(t *testing.T) {
	cfg = testConfig()

	cfg.Acquire.HTMLStrategy = config.StrategyStatic
	assert.Nil(t, initRenderer())

	cfg.Acquire.HTMLStrategy = config.StrategyRendered
	assert.IsType(t, &acquire.ChromeRenderer{}, initRenderer())

	cfg.Acquire.HTMLStrategy = config.StrategyAuto
	assert.IsType(t, &acquire.ChromeRenderer{}, initRenderer())

	cfg.Acquire.HTMLStrategy = config.StrategyRemote
	cfg.Jina = config.JinaConfig{Key: "jina-key", BaseURL: "https://r.jina.ai"}
	assert.IsType(t, &acquire.JinaRenderer{}, initRenderer())
}

func TestInitRegistry(t *testing.T) {
	cfg = testConfig()
	assert.NotNil(t, initRegistry())

	cfg.Registry = config.RegistryConfig{}
	assert.NotNil(t, initRegistry())
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/acquire"
	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/enrich"
	"github.com/sells-group/procurement-leads/internal/extract"
	"github.com/sells-group/procurement-leads/internal/ocr"
	"github.com/sells-group/procurement-leads/internal/pipeline"
	"github.com/sells-group/procurement-leads/internal/resilience"
	"github.com/sells-group/procurement-leads/pkg/anthropic"
	"github.com/sells-group/procurement-leads/pkg/gemini"
	"github.com/sells-group/procurement-leads/pkg/jina"
	"github.com/sells-group/procurement-leads/pkg/registry"
)

// initPipeline validates configuration and builds every collaborator once.
// It refuses to start without the credential for the selected LLM provider.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := initGenerator(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, eris.Wrap(err, "init ocr")
	}

	renderer := initRenderer()
	rendererName := "none"
	if renderer != nil {
		rendererName = renderer.Name()
	}
	acq := acquire.New(cfg.Acquire, docs, renderer)
	ext := extract.New(gen, cfg.Extract)
	enr := enrich.New(initRegistry(), cfg.Enrich)

	zap.L().Info("pipeline initialized",
		zap.String("llm_provider", gen.Name()),
		zap.String("html_strategy", cfg.Acquire.HTMLStrategy),
		zap.String("renderer", rendererName),
		zap.String("ocr_provider", cfg.OCR.Provider),
		zap.Int("reference_concurrency", cfg.Pipeline.ReferenceConcurrency),
		zap.Int("record_concurrency", cfg.Pipeline.RecordConcurrency),
	)

	return pipeline.New(acq, ext, enr, pipeline.PolicyFromConfig(cfg.Pipeline)), nil
}

func initGenerator(ctx context.Context) (extract.Generator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return extract.NewAnthropicGenerator(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, opts...)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini client")
		}
		return extract.NewGeminiGenerator(client, cfg.Gemini.Model), nil
	}
}

func initRenderer() acquire.Renderer {
	switch cfg.Acquire.HTMLStrategy {
	case config.StrategyStatic:
		return nil
	case config.StrategyRemote:
		client := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		return acquire.NewJinaRenderer(client, cfg.Acquire.RenderTimeoutSecs)
	default:
		return acquire.NewChromeRenderer(cfg.Acquire)
	}
}

func initRegistry() registry.Client {
	rc := cfg.Registry
	opts := []registry.Option{registry.WithRateLimit(rc.RatePerSec)}
	if rc.BaseURL != "" {
		opts = append(opts, registry.WithBaseURL(rc.BaseURL))
	}
	if rc.TimeoutSecs > 0 {
		opts = append(opts, registry.WithHTTPClient(&http.Client{Timeout: time.Duration(rc.TimeoutSecs) * time.Second}))
	}
	if rc.MaxAttempts > 0 {
		b := resilience.DefaultBackoff("registry.lookup")
		b.Attempts = rc.MaxAttempts
		opts = append(opts, registry.WithBackoff(b))
	}
	if rc.FailureThreshold > 0 {
		opts = append(opts, registry.WithBreakerSettings(rc.FailureThreshold, time.Duration(rc.ResetTimeoutSecs)*time.Second))
	}
	return registry.NewClient(opts...)
}

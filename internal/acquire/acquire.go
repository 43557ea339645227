// Package acquire resolves References into plain text: pass-through for
// literal content, HTTP plus goquery for static pages, a headless browser or
// Jina Reader for script-rendered pages, and OCR for PDF documents.
package acquire

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/model"
	"github.com/sells-group/procurement-leads/internal/ocr"
)

const (
	strategyPassthrough = "passthrough"
	strategyDocument    = "document"
	strategyStatic      = "static"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

// Renderer captures the visible text of a page after its scripts have run.
type Renderer interface {
	Name() string
	Render(ctx context.Context, url string) (string, error)
}

// Acquirer resolves References. It holds no per-call state and is safe for
// concurrent use.
type Acquirer struct {
	strategy       string
	http           *http.Client
	userAgent      string
	minStaticChars int
	maxDocBytes    int64
	renderer       Renderer
	docs           ocr.Extractor
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithHTTPClient replaces the client used for static pages and documents.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Acquirer) {
		a.http = hc
	}
}

// New creates an Acquirer. renderer may be nil when the strategy is static;
// docs may be nil when PDF references are not expected.
func New(cfg config.AcquireConfig, docs ocr.Extractor, renderer Renderer, opts ...Option) *Acquirer {
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a := &Acquirer{
		strategy:       cfg.HTMLStrategy,
		userAgent:      cfg.UserAgent,
		minStaticChars: cfg.MinStaticChars,
		maxDocBytes:    cfg.MaxDocumentBytes,
		renderer:       renderer,
		docs:           docs,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
	if a.strategy == "" {
		a.strategy = config.StrategyAuto
	}
	if a.userAgent == "" {
		a.userAgent = defaultUserAgent
	}
	if a.maxDocBytes <= 0 {
		a.maxDocBytes = 25 << 20
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire resolves ref to plain text. Failures are always *Error; partial
// text is never returned as success.
func (a *Acquirer) Acquire(ctx context.Context, ref model.Reference) (model.AcquiredContent, error) {
	start := time.Now()

	var (
		content model.AcquiredContent
		err     error
	)
	switch ref.Kind {
	case model.ReferenceRawText:
		content, err = passthrough(ref, model.ContentText)
	case model.ReferenceHTMLFragment:
		content, err = passthrough(ref, model.ContentHTML)
	case model.ReferencePDFURL:
		content, err = a.acquireDocument(ctx, ref)
	case model.ReferenceHTMLURL:
		content, err = a.acquirePage(ctx, ref)
	default:
		err = newError(UnsupportedReferenceKind, ref, eris.Errorf("acquire: unknown reference kind %q", ref.Kind))
	}

	if err != nil {
		zap.L().Warn("acquire: reference failed",
			zap.Stringer("ref", ref),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return model.AcquiredContent{}, err
	}

	zap.L().Debug("acquire: reference resolved",
		zap.Stringer("ref", ref),
		zap.String("strategy", content.Strategy),
		zap.Int("chars", len(content.Text)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return content, nil
}

func passthrough(ref model.Reference, kind model.ContentKind) (model.AcquiredContent, error) {
	if strings.TrimSpace(ref.Value) == "" {
		return model.AcquiredContent{}, newError(UnreadableDocument, ref, eris.New("acquire: empty payload"))
	}
	return model.AcquiredContent{Source: ref, Text: ref.Value, Kind: kind, Strategy: strategyPassthrough}, nil
}

// acquirePage applies the configured html strategy. Auto tries the static
// fetch first and falls back to the renderer when the page is blocked, a
// script shell, or too short to hold a result table.
func (a *Acquirer) acquirePage(ctx context.Context, ref model.Reference) (model.AcquiredContent, error) {
	switch a.strategy {
	case config.StrategyStatic:
		text, err := a.fetchStatic(ctx, ref)
		if err != nil {
			return model.AcquiredContent{}, err
		}
		return pageContent(ref, text, strategyStatic), nil

	case config.StrategyRendered, config.StrategyRemote:
		return a.render(ctx, ref)

	case config.StrategyAuto:
		text, err := a.fetchStatic(ctx, ref)
		if err == nil && len([]rune(text)) >= a.minStaticChars {
			return pageContent(ref, text, strategyStatic), nil
		}
		if ctx.Err() != nil || a.renderer == nil {
			if err == nil {
				return pageContent(ref, text, strategyStatic), nil
			}
			return model.AcquiredContent{}, err
		}
		zap.L().Debug("acquire: static fetch insufficient, rendering",
			zap.String("url", ref.Value),
			zap.Int("static_chars", len(text)),
			zap.Error(err),
		)
		return a.render(ctx, ref)
	}
	return model.AcquiredContent{}, newError(UnsupportedReferenceKind, ref, eris.Errorf("acquire: unknown html strategy %q", a.strategy))
}

func (a *Acquirer) render(ctx context.Context, ref model.Reference) (model.AcquiredContent, error) {
	if a.renderer == nil {
		return model.AcquiredContent{}, newError(NetworkError, ref, eris.New("acquire: no renderer configured"))
	}
	text, err := a.renderer.Render(ctx, ref.Value)
	if err != nil {
		return model.AcquiredContent{}, transportError(ctx, ref, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.AcquiredContent{}, newError(UnreadableDocument, ref, eris.Errorf("acquire: %s returned no text", a.renderer.Name()))
	}
	return pageContent(ref, text, a.renderer.Name()), nil
}

func pageContent(ref model.Reference, text, strategy string) model.AcquiredContent {
	return model.AcquiredContent{Source: ref, Text: text, Kind: model.ContentHTML, Strategy: strategy}
}

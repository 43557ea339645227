// Package extract turns procurement text into bidder records using a
// generative model.
package extract

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/model"
)

// Extractor recovers ExtractionRecords from text.
type Extractor struct {
	gen               Generator
	vocab             *Vocabulary
	maxInputChars     int
	minInputChars     int
	explicitExclusion bool
}

// New creates an Extractor from config.
func New(gen Generator, cfg config.ExtractConfig) *Extractor {
	e := &Extractor{
		gen:               gen,
		vocab:             DefaultVocabulary(),
		maxInputChars:     cfg.MaxInputChars,
		minInputChars:     cfg.MinInputChars,
		explicitExclusion: cfg.ExplicitExclusion,
	}
	if e.maxInputChars <= 0 {
		e.maxInputChars = 50000
	}
	return e
}

// Extract returns the target-status records found in text. Excluded
// statuses are dropped. A reply that cannot be decoded yields a single
// StatusExtractionFailed sentinel. Only a failed generative call returns an
// error, as *ServiceError.
func (e *Extractor) Extract(ctx context.Context, text string, mode Mode) ([]model.ExtractionRecord, error) {
	if utf8.RuneCountInString(text) < e.minInputChars {
		zap.L().Debug("extract: text too short, skipping",
			zap.Int("chars", utf8.RuneCountInString(text)),
		)
		return nil, nil
	}

	text, truncated := Truncate(text, e.maxInputChars)
	if truncated {
		zap.L().Info("extract: input truncated", zap.Int("max_chars", e.maxInputChars))
	}

	params := DefaultInstructionParams(mode)
	params.ExplicitExclusion = e.explicitExclusion
	params.Vocabulary = e.vocab
	ins := BuildInstruction(params)

	start := time.Now()
	reply, err := e.gen.Generate(ctx, ins.System, ins.Prompt(text))
	if err != nil {
		return nil, &ServiceError{Provider: e.gen.Name(), Err: err}
	}

	out := DecodeWith(reply, e.vocab)
	zap.L().Info("extract: reply decoded",
		zap.String("provider", e.gen.Name()),
		zap.String("instruction", ins.Version),
		zap.String("mode", mode.String()),
		zap.Stringer("outcome", out.Kind),
		zap.Int("records", len(out.Records)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	switch out.Kind {
	case OutcomeEmpty:
		return nil, nil
	case OutcomeDecodeFailure:
		zap.L().Warn("extract: undecodable reply",
			zap.Error(out.Err),
			zap.String("reply", excerpt(compactJSON(out.Raw), 500)),
		)
		return []model.ExtractionRecord{{
			Status:  model.StatusExtractionFailed,
			Message: fmt.Sprintf("could not decode extraction reply: %v", out.Err),
		}}, nil
	}

	kept := out.Records[:0]
	for _, r := range out.Records {
		if r.Status.Excluded() {
			zap.L().Debug("extract: dropping excluded bidder",
				zap.String("company", r.CompanyName),
				zap.String("status", r.StatusText),
			)
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Truncate keeps the first max runes of text.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i], true
		}
		n++
	}
	return text, false
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	t, _ := Truncate(s, n)
	return t + "..."
}

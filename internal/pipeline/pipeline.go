// Package pipeline runs References through acquisition, extraction and
// enrichment, isolating failures per reference.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/procurement-leads/internal/acquire"
	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/extract"
	"github.com/sells-group/procurement-leads/internal/model"
)

// Acquirer resolves a Reference to text.
type Acquirer interface {
	Acquire(ctx context.Context, ref model.Reference) (model.AcquiredContent, error)
}

// Extractor recovers bidder records from text.
type Extractor interface {
	Extract(ctx context.Context, text string, mode extract.Mode) ([]model.ExtractionRecord, error)
}

// Enricher merges a record with registry data. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, r model.ExtractionRecord) model.Lead
}

// Policy bounds fan-out. Values <= 1 run sequentially.
type Policy struct {
	References int
	Records    int
}

// PolicyFromConfig builds a Policy from pipeline config.
func PolicyFromConfig(cfg config.PipelineConfig) Policy {
	return Policy{References: cfg.ReferenceConcurrency, Records: cfg.RecordConcurrency}
}

func limit(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Pipeline is safe for concurrent use; each Run is independent.
type Pipeline struct {
	acquirer  Acquirer
	extractor Extractor
	enricher  Enricher
	policy    Policy
}

// New creates a Pipeline.
func New(acq Acquirer, ext Extractor, enr Enricher, policy Policy) *Pipeline {
	return &Pipeline{
		acquirer:  acq,
		extractor: ext,
		enricher:  enr,
		policy:    policy,
	}
}

// Run processes refs and returns their leads in reference order. A
// reference that fails to acquire or extract contributes no leads. The
// result is never nil.
func (p *Pipeline) Run(ctx context.Context, refs []model.Reference) []model.Lead {
	leads, _ := p.RunWithSummary(ctx, refs)
	return leads
}

// RunWithSummary is Run plus the counters of the run.
func (p *Pipeline) RunWithSummary(ctx context.Context, refs []model.Reference) ([]model.Lead, RunSummary) {
	start := time.Now()
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: run started", zap.Int("references", len(refs)))

	outcomes := make([]refOutcome, len(refs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit(p.policy.References))
	for i, ref := range refs {
		g.Go(func() error {
			outcomes[i] = p.processReference(gCtx, log, ref)
			return nil
		})
	}
	_ = g.Wait()

	summary := RunSummary{RunID: runID, References: len(refs)}
	leads := make([]model.Lead, 0, len(refs))
	for _, o := range outcomes {
		summary.add(o)
		leads = append(leads, o.leads...)
	}
	summary.Leads = len(leads)
	summary.Duration = time.Since(start)

	summary.log(log)
	return leads, summary
}

// refOutcome is what one reference contributed.
type refOutcome struct {
	leads     []model.Lead
	stage     string // "", "acquire" or "extract"
	errKind   string
	records   int
	excluded  int
	sentinels int
	enriched  int
}

func (p *Pipeline) processReference(ctx context.Context, log *zap.Logger, ref model.Reference) refOutcome {
	log = log.With(zap.Stringer("ref", ref), zap.String("kind", string(ref.Kind)))
	start := time.Now()

	content, err := p.acquirer.Acquire(ctx, ref)
	if err != nil {
		kind := "unknown"
		var ae *acquire.Error
		if errors.As(err, &ae) {
			kind = string(ae.Kind)
		}
		log.Warn("pipeline: reference skipped, acquisition failed",
			zap.String("error_kind", kind),
			zap.Error(err),
		)
		return refOutcome{stage: "acquire", errKind: kind}
	}

	mode := extract.FullText
	if ref.Kind == model.ReferenceHTMLFragment {
		mode = extract.HTMLBlocks
	}

	records, err := p.extractor.Extract(ctx, content.Text, mode)
	if err != nil {
		log.Warn("pipeline: reference skipped, extraction failed",
			zap.String("strategy", content.Strategy),
			zap.Error(err),
		)
		return refOutcome{stage: "extract", errKind: "service"}
	}

	out := refOutcome{records: len(records)}
	var survivors []model.ExtractionRecord
	for _, r := range records {
		switch {
		case r.IsSentinel():
			out.sentinels++
			lead := model.NewPartialLead(r, model.RegistrySkipped)
			lead.Provenance = ref
			out.leads = append(out.leads, lead)
		case r.Status.Excluded():
			out.excluded++
		default:
			survivors = append(survivors, r)
		}
	}

	enriched := p.enrichAll(ctx, survivors)
	for i := range enriched {
		enriched[i].Provenance = ref
		if enriched[i].RegistryStatus == model.RegistryEnriched {
			out.enriched++
		}
	}
	out.leads = append(out.leads, enriched...)

	log.Info("pipeline: reference processed",
		zap.String("strategy", content.Strategy),
		zap.Int("records", out.records),
		zap.Int("leads", len(out.leads)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return out
}

// enrichAll enriches records under the record policy, keeping input order.
func (p *Pipeline) enrichAll(ctx context.Context, records []model.ExtractionRecord) []model.Lead {
	leads := make([]model.Lead, len(records))
	if len(records) == 0 {
		return leads
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit(p.policy.Records))
	for i, r := range records {
		g.Go(func() error {
			leads[i] = p.enricher.Enrich(gCtx, r)
			return nil
		})
	}
	_ = g.Wait()
	return leads
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/procurement-leads/internal/acquire"
	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/extract"
	"github.com/sells-group/procurement-leads/internal/model"
)

// fakeAcquirer returns the reference value as text unless an error or delay
// is registered for it.
type fakeAcquirer struct {
	errs   map[string]error
	delays map[string]time.Duration
}

func (f *fakeAcquirer) Acquire(ctx context.Context, ref model.Reference) (model.AcquiredContent, error) {
	if d := f.delays[ref.Value]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.AcquiredContent{}, ctx.Err()
		}
	}
	if err := f.errs[ref.Value]; err != nil {
		return model.AcquiredContent{}, err
	}
	return model.AcquiredContent{Source: ref, Text: "text:" + ref.Value, Kind: model.ContentText, Strategy: "fake"}, nil
}

// fakeExtractor maps text to canned records.
type fakeExtractor struct {
	mu      sync.Mutex
	records map[string][]model.ExtractionRecord
	errs    map[string]error
	modes   []extract.Mode
}

func (f *fakeExtractor) Extract(_ context.Context, text string, mode extract.Mode) ([]model.ExtractionRecord, error) {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	if err := f.errs[text]; err != nil {
		return nil, err
	}
	return f.records[text], nil
}

// fakeEnricher marks records with a tax id as enriched.
type fakeEnricher struct {
	calls atomic.Int32
}

func (f *fakeEnricher) Enrich(_ context.Context, r model.ExtractionRecord) model.Lead {
	f.calls.Add(1)
	if r.TaxID == "" {
		return model.NewPartialLead(r, model.RegistryUnavailable)
	}
	lead := model.NewPartialLead(r, model.RegistryEnriched)
	lead.LegalName = r.CompanyName + " LTDA"
	return lead
}

func rec(name, taxID string, status model.Status) model.ExtractionRecord {
	return model.ExtractionRecord{CompanyName: name, TaxID: taxID, Status: status}
}

func names(leads []model.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.CompanyName
	}
	return out
}

func timeoutErr(ref model.Reference) error {
	return &acquire.Error{Kind: acquire.Timeout, Ref: ref, Err: context.DeadlineExceeded}
}

func TestRun_IsolatesFailedReference(t *testing.T) {
	a := model.NewURLReference("https://a.gov.br/resultado")
	b := model.NewURLReference("https://b.gov.br/resultado")
	c := model.NewURLReference("https://c.gov.br/resultado")

	acq := &fakeAcquirer{errs: map[string]error{b.Value: timeoutErr(b)}}
	ext := &fakeExtractor{records: map[string][]model.ExtractionRecord{
		"text:" + a.Value: {rec("Alpha", "11111111000111", model.StatusDisqualified)},
		"text:" + b.Value: {rec("Bravo", "22222222000122", model.StatusDisqualified)},
		"text:" + c.Value: {rec("Charlie", "", model.StatusIneligible)},
	}}
	p := New(acq, ext, &fakeEnricher{}, Policy{})

	leads, summary := p.RunWithSummary(context.Background(), []model.Reference{a, b, c})

	require.Len(t, leads, 2)
	assert.Equal(t, []string{"Alpha", "Charlie"}, names(leads))
	assert.Equal(t, a, leads[0].Provenance)
	assert.Equal(t, c, leads[1].Provenance)
	assert.Equal(t, model.RegistryEnriched, leads[0].RegistryStatus)
	assert.Equal(t, model.RegistryUnavailable, leads[1].RegistryStatus)

	assert.Equal(t, 3, summary.References)
	assert.Equal(t, 2, summary.Acquired)
	assert.Equal(t, 1, summary.AcquireFailures)
	assert.Equal(t, 1, summary.AcquireErrorKind["timeout"])
	assert.Equal(t, 1, summary.Enriched)
	assert.Equal(t, 2, summary.Leads)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_PreservesReferenceOrderUnderConcurrency(t *testing.T) {
	refs := []model.Reference{
		model.NewTextReference("slow"),
		model.NewTextReference("medium"),
		model.NewTextReference("fast"),
	}
	acq := &fakeAcquirer{delays: map[string]time.Duration{
		"slow":   60 * time.Millisecond,
		"medium": 20 * time.Millisecond,
	}}
	ext := &fakeExtractor{records: map[string][]model.ExtractionRecord{
		"text:slow":   {rec("S1", "", model.StatusDisqualified), rec("S2", "", model.StatusIneligible)},
		"text:medium": {rec("M1", "", model.StatusDisqualified)},
		"text:fast":   {rec("F1", "", model.StatusDisqualified)},
	}}
	p := New(acq, ext, &fakeEnricher{}, Policy{References: 3, Records: 4})

	leads := p.Run(context.Background(), refs)
	assert.Equal(t, []string{"S1", "S2", "M1", "F1"}, names(leads))
}

func TestRun_FiltersExcludedBeforeEnrichment(t *testing.T) {
	ref := model.NewTextReference("ata")
	ext := &fakeExtractor{records: map[string][]model.ExtractionRecord{
		"text:ata": {
			rec("Vencedora SA", "33333333000133", model.StatusAwarded),
			rec("Perdedora ME", "44444444000144", model.StatusDisqualified),
			rec("Homologada Ltda", "55555555000155", model.StatusHomologatedWinner),
		},
	}}
	enr := &fakeEnricher{}
	p := New(&fakeAcquirer{}, ext, enr, Policy{})

	leads, summary := p.RunWithSummary(context.Background(), []model.Reference{ref})

	assert.Equal(t, []string{"Perdedora ME"}, names(leads))
	assert.Equal(t, int32(1), enr.calls.Load())
	assert.Equal(t, 2, summary.Excluded)
	for _, l := range leads {
		assert.False(t, l.Status.Excluded())
	}
}

func TestRun_SentinelSurfacesWithoutEnrichment(t *testing.T) {
	ref := model.NewTextReference("garbled")
	ext := &fakeExtractor{records: map[string][]model.ExtractionRecord{
		"text:garbled": {{Status: model.StatusExtractionFailed, Message: "could not decode extraction reply"}},
	}}
	enr := &fakeEnricher{}
	p := New(&fakeAcquirer{}, ext, enr, Policy{})

	leads, summary := p.RunWithSummary(context.Background(), []model.Reference{ref})

	require.Len(t, leads, 1)
	assert.Equal(t, model.StatusExtractionFailed, leads[0].Status)
	assert.Equal(t, "could not decode extraction reply", leads[0].Message)
	assert.Equal(t, model.RegistrySkipped, leads[0].RegistryStatus)
	assert.Equal(t, ref, leads[0].Provenance)
	assert.Equal(t, int32(0), enr.calls.Load())
	assert.Equal(t, 1, summary.Sentinels)
}

func TestRun_ExtractionServiceErrorIsolated(t *testing.T) {
	bad := model.NewTextReference("bad")
	good := model.NewTextReference("good")
	ext := &fakeExtractor{
		errs: map[string]error{"text:bad": &extract.ServiceError{Provider: "fake", Err: errors.New("503")}},
		records: map[string][]model.ExtractionRecord{
			"text:good": {rec("Good", "", model.StatusIneligible)},
		},
	}
	p := New(&fakeAcquirer{}, ext, &fakeEnricher{}, Policy{References: 2})

	leads, summary := p.RunWithSummary(context.Background(), []model.Reference{bad, good})
	assert.Equal(t, []string{"Good"}, names(leads))
	assert.Equal(t, 1, summary.ExtractFailures)
	assert.Equal(t, 2, summary.Acquired)
}

func TestRun_AllFailedIsEmptyNotNil(t *testing.T) {
	ref := model.NewURLReference("https://down.gov.br")
	acq := &fakeAcquirer{errs: map[string]error{ref.Value: &acquire.Error{Kind: acquire.NetworkError, Ref: ref}}}
	p := New(acq, &fakeExtractor{}, &fakeEnricher{}, Policy{})

	leads, summary := p.RunWithSummary(context.Background(), []model.Reference{ref})
	require.NotNil(t, leads)
	assert.Empty(t, leads)
	assert.Equal(t, 1, summary.Failed())

	out, err := json.Marshal(leads)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	assert.NotNil(t, p.Run(context.Background(), nil))
}

func TestRun_FragmentUsesHTMLBlocksMode(t *testing.T) {
	ext := &fakeExtractor{}
	p := New(&fakeAcquirer{}, ext, &fakeEnricher{}, Policy{})

	p.Run(context.Background(), []model.Reference{
		model.NewFragmentReference("<tr><td>X</td></tr>"),
		model.NewTextReference("plain"),
	})
	assert.Equal(t, []extract.Mode{extract.HTMLBlocks, extract.FullText}, ext.modes)
}

func TestRun_UnknownAcquireErrorCounted(t *testing.T) {
	ref := model.NewTextReference("x")
	acq := &fakeAcquirer{errs: map[string]error{"x": errors.New("boom")}}
	p := New(acq, &fakeExtractor{}, &fakeEnricher{}, Policy{})

	_, summary := p.RunWithSummary(context.Background(), []model.Reference{ref})
	assert.Equal(t, 1, summary.AcquireErrorKind["unknown"])
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.PipelineConfig{ReferenceConcurrency: 2, RecordConcurrency: 8})
	assert.Equal(t, Policy{References: 2, Records: 8}, p)
	assert.Equal(t, 1, limit(0))
	assert.Equal(t, 1, limit(-3))
	assert.Equal(t, 5, limit(5))
}

package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// RunSummary counts what happened during one run.
type RunSummary struct {
	RunID            string         `json:"runId"`
	References       int            `json:"references"`
	Acquired         int            `json:"acquired"`
	AcquireFailures  int            `json:"acquireFailures"`
	ExtractFailures  int            `json:"extractFailures"`
	Records          int            `json:"records"`
	Excluded         int            `json:"excluded"`
	Sentinels        int            `json:"sentinels"`
	Enriched         int            `json:"enriched"`
	Leads            int            `json:"leads"`
	Duration         time.Duration  `json:"durationNs"`
	AcquireErrorKind map[string]int `json:"acquireErrorKinds,omitempty"`
}

func (s *RunSummary) add(o refOutcome) {
	switch o.stage {
	case "acquire":
		s.AcquireFailures++
		if s.AcquireErrorKind == nil {
			s.AcquireErrorKind = make(map[string]int)
		}
		s.AcquireErrorKind[o.errKind]++
		return
	case "extract":
		s.Acquired++
		s.ExtractFailures++
		return
	}
	s.Acquired++
	s.Records += o.records
	s.Excluded += o.excluded
	s.Sentinels += o.sentinels
	s.Enriched += o.enriched
}

// Failed is the number of references that contributed nothing because a
// stage failed.
func (s RunSummary) Failed() int {
	return s.AcquireFailures + s.ExtractFailures
}

func (s RunSummary) log(log *zap.Logger) {
	fields := []zap.Field{
		zap.Int("references", s.References),
		zap.Int("acquired", s.Acquired),
		zap.Int("acquire_failures", s.AcquireFailures),
		zap.Int("extract_failures", s.ExtractFailures),
		zap.Int("records", s.Records),
		zap.Int("excluded", s.Excluded),
		zap.Int("sentinels", s.Sentinels),
		zap.Int("enriched", s.Enriched),
		zap.Int("leads", s.Leads),
		zap.Int64("duration_ms", s.Duration.Milliseconds()),
	}
	for kind, n := range s.AcquireErrorKind {
		fields = append(fields, zap.Int("acquire_"+kind, n))
	}
	if s.References > 0 && s.Failed() == s.References {
		log.Warn("pipeline: run finished, every reference failed", fields...)
		return
	}
	log.Info("pipeline: run finished", fields...)
}

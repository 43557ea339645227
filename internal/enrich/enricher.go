// Package enrich merges extracted bidder records with registry data.
package enrich

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/config"
	"github.com/sells-group/procurement-leads/internal/fold"
	"github.com/sells-group/procurement-leads/internal/model"
	"github.com/sells-group/procurement-leads/pkg/registry"
)

// Roles that mark a partner as the decision-maker, folded.
var decisionRoles = []string{"administrador", "administrator"}

// Enricher turns ExtractionRecords into Leads.
type Enricher struct {
	registry        registry.Client
	searchBaseURL   string
	includeWhatsApp bool
}

// New creates an Enricher.
func New(reg registry.Client, cfg config.EnrichConfig) *Enricher {
	base := cfg.SearchBaseURL
	if base == "" {
		base = "https://www.google.com/search"
	}
	return &Enricher{
		registry:        reg,
		searchBaseURL:   base,
		includeWhatsApp: cfg.IncludeWhatsApp,
	}
}

// Enrich looks up r's tax id and merges the registry entity into a Lead.
// Lookup misses and failures degrade the lead instead of returning an error.
func (e *Enricher) Enrich(ctx context.Context, r model.ExtractionRecord) model.Lead {
	if !r.HasTaxID() {
		return model.NewPartialLead(r, model.RegistryUnavailable)
	}

	id := NormalizeTaxID(r.TaxID)
	if !ValidTaxIDLength(id) {
		zap.L().Debug("enrich: malformed tax id, skipping lookup",
			zap.String("company", r.CompanyName),
			zap.String("tax_id", r.TaxID),
		)
		return model.NewPartialLead(r, model.RegistryUnavailable)
	}

	start := time.Now()
	ent, err := e.registry.Lookup(ctx, id)
	if err != nil {
		level := zap.WarnLevel
		if errors.Is(err, registry.ErrNotFound) {
			level = zap.InfoLevel
		}
		zap.L().Log(level, "enrich: registry lookup failed",
			zap.String("tax_id", id),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return model.NewPartialLead(r, model.RegistryUnavailable)
	}

	lead := model.NewPartialLead(r, model.RegistryEnriched)
	lead.TaxID = id
	lead.LegalName = orUnavailable(ent.LegalName)
	lead.PrimaryActivity = orUnavailable(ent.PrimaryActivity)
	lead.Region = orUnavailable(ent.Region)
	lead.RegisteredPhone = orUnavailable(ent.RegisteredPhone)
	lead.PhoneFormatValid = ValidPhoneFormat(ent.RegisteredPhone)
	lead.DecisionMaker = DecisionMaker(ent.Partners)
	lead.ContactSearchURL = e.ContactSearchURL(lead.DecisionMaker, ent.LegalName)
	if lead.CompanyName == "" {
		lead.CompanyName = ent.LegalName
	}
	return lead
}

// DecisionMaker picks the first partner whose role names an administrator,
// then the first partner, then model.DecisionMakerNotFound.
func DecisionMaker(partners []registry.Partner) string {
	for _, p := range partners {
		role := fold.Key(p.Role)
		for _, want := range decisionRoles {
			if strings.Contains(role, want) && p.Name != "" {
				return p.Name
			}
		}
	}
	for _, p := range partners {
		if p.Name != "" {
			return p.Name
		}
	}
	return model.DecisionMakerNotFound
}

// ContactSearchURL builds a search-engine query for the decision-maker and
// company. It performs no I/O.
func (e *Enricher) ContactSearchURL(decisionMaker, legalName string) string {
	terms := make([]string, 0, 4)
	if decisionMaker != "" && decisionMaker != model.DecisionMakerNotFound && decisionMaker != model.Unavailable {
		terms = append(terms, quote(decisionMaker))
	}
	if legalName != "" {
		terms = append(terms, quote(legalName))
	}
	terms = append(terms, "telefone")
	if e.includeWhatsApp {
		terms = append(terms, "whatsapp")
	}
	return e.searchBaseURL + "?q=" + url.QueryEscape(strings.Join(terms, " "))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, "") + `"`
}

func orUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unavailable
	}
	return s
}

// Package registry looks up Brazilian companies by CNPJ in the public
// BrasilAPI registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/procurement-leads/internal/resilience"
)

// ErrNotFound is returned when the registry has no entity for the id.
var ErrNotFound = eris.New("registry: entity not found")

// Client resolves a normalized 14-digit CNPJ to its registry entity.
type Client interface {
	Lookup(ctx context.Context, taxID string) (*Entity, error)
}

// Entity is the canonical registry record for a business.
type Entity struct {
	TaxID           string    `json:"taxId"`
	LegalName       string    `json:"legalName"`
	TradeName       string    `json:"tradeName,omitempty"`
	PrimaryActivity string    `json:"primaryActivity"`
	Region          string    `json:"region"`
	Partners        []Partner `json:"partners"`
	RegisteredPhone string    `json:"registeredPhone,omitempty"`
}

// Partner is one entry in the entity's partner/administrator board.
type Partner struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// cnpjResponse mirrors the subset of the BrasilAPI payload we read.
type cnpjResponse struct {
	CNPJ          string      `json:"cnpj"`
	RazaoSocial   string      `json:"razao_social"`
	NomeFantasia  string      `json:"nome_fantasia"`
	CNAEDescricao string      `json:"cnae_fiscal_descricao"`
	UF            string      `json:"uf"`
	Municipio     string      `json:"municipio"`
	DDDTelefone1  string      `json:"ddd_telefone_1"`
	DDDTelefone2  string      `json:"ddd_telefone_2"`
	QSA           []qsaMember `json:"qsa"`
}

type qsaMember struct {
	NomeSocio         string `json:"nome_socio"`
	QualificacaoSocio string `json:"qualificacao_socio"`
}

func (r cnpjResponse) entity(taxID string) *Entity {
	e := &Entity{
		TaxID:           taxID,
		LegalName:       strings.TrimSpace(r.RazaoSocial),
		TradeName:       strings.TrimSpace(r.NomeFantasia),
		PrimaryActivity: strings.TrimSpace(r.CNAEDescricao),
		Region:          region(r.Municipio, r.UF),
		RegisteredPhone: strings.TrimSpace(r.DDDTelefone1),
	}
	if e.RegisteredPhone == "" {
		e.RegisteredPhone = strings.TrimSpace(r.DDDTelefone2)
	}
	for _, s := range r.QSA {
		e.Partners = append(e.Partners, Partner{
			Name: strings.TrimSpace(s.NomeSocio),
			Role: strings.TrimSpace(s.QualificacaoSocio),
		})
	}
	return e
}

func region(city, state string) string {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	switch {
	case city != "" && state != "":
		return city + " - " + state
	case city != "":
		return city
	default:
		return state
	}
}

// Option configures the BrasilAPI client.
type Option func(*brasilAPI)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *brasilAPI) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *brasilAPI) {
		c.http = hc
	}
}

// WithRateLimit caps outbound lookups per second. Zero disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(c *brasilAPI) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithBackoff replaces the retry schedule.
func WithBackoff(b resilience.Backoff) Option {
	return func(c *brasilAPI) {
		c.backoff = b
	}
}

// WithBreaker attaches a circuit breaker shared across lookups.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *brasilAPI) {
		c.breaker = b
	}
}

// WithBreakerSettings attaches a breaker that opens after threshold
// consecutive failures. Misses never count.
func WithBreakerSettings(threshold int, cooldown time.Duration) Option {
	return func(c *brasilAPI) {
		c.breaker = resilience.NewBreaker("registry", threshold, cooldown, countsAgainstBreaker)
	}
}

type brasilAPI struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	backoff resilience.Backoff
	breaker *resilience.Breaker
}

// NewClient creates a BrasilAPI-backed registry client.
func NewClient(opts ...Option) Client {
	c := &brasilAPI{
		baseURL: "https://brasilapi.com.br/api/cnpj/v1",
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(3), 1),
		backoff: resilience.DefaultBackoff("registry.lookup"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewBreaker("registry", 5, 30*time.Second, countsAgainstBreaker)
	}
	return c
}

// A miss is a valid answer, not an outage.
func countsAgainstBreaker(err error) bool {
	return err != nil && !eris.Is(err, ErrNotFound)
}

func (c *brasilAPI) Lookup(ctx context.Context, taxID string) (*Entity, error) {
	return resilience.Call(ctx, c.breaker, func(ctx context.Context) (*Entity, error) {
		return resilience.Retry(ctx, c.backoff, func(ctx context.Context) (*Entity, error) {
			return c.lookupOnce(ctx, taxID)
		})
	})
}

func (c *brasilAPI) lookupOnce(ctx context.Context, taxID string) (*Entity, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "registry: rate limit wait")
		}
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, taxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "registry: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resilience.Transient(eris.Wrap(err, "registry: read response body"), resp.StatusCode)
	}

	zap.L().Debug("registry: lookup",
		zap.String("tax_id", taxID),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resilience.TransientStatus(resp.StatusCode):
		return nil, resilience.Transient(eris.Errorf("registry: status %d", resp.StatusCode), resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("registry: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload cnpjResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal response")
	}
	if strings.TrimSpace(payload.RazaoSocial) == "" {
		return nil, ErrNotFound
	}

	return payload.entity(taxID), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

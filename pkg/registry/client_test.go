package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/procurement-leads/internal/resilience"
)

const acmePayload = `{
  "cnpj": "12345678000190",
  "razao_social": "ACME OBRAS LTDA",
  "nome_fantasia": "ACME",
  "cnae_fiscal_descricao": "Construção de edifícios",
  "uf": "SP",
  "municipio": "SAO PAULO",
  "ddd_telefone_1": "1133334444",
  "qsa": [
    {"nome_socio": "MARIA SOUZA", "qualificacao_socio": "Sócio"},
    {"nome_socio": "JOAO LIMA", "qualificacao_socio": "Sócio-Administrador"}
  ]
}`

func fastBackoff() resilience.Backoff {
	return resilience.Backoff{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond, Factor: 2}
}

func TestLookup_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345678000190", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(acmePayload))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	got, err := c.Lookup(context.Background(), "12345678000190")

	require.NoError(t, err)
	assert.Equal(t, "ACME OBRAS LTDA", got.LegalName)
	assert.Equal(t, "ACME", got.TradeName)
	assert.Equal(t, "Construção de edifícios", got.PrimaryActivity)
	assert.Equal(t, "SAO PAULO - SP", got.Region)
	assert.Equal(t, "1133334444", got.RegisteredPhone)
	require.Len(t, got.Partners, 2)
	assert.Equal(t, Partner{Name: "JOAO LIMA", Role: "Sócio-Administrador"}, got.Partners[1])
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"CNPJ 00000000000000 não encontrado."}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), WithBackoff(fastBackoff()))
	_, err := c.Lookup(context.Background(), "00000000000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), calls.Load(), "a miss is not retried")
}

func TestLookup_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(acmePayload))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), WithBackoff(fastBackoff()))
	got, err := c.Lookup(context.Background(), "12345678000190")

	require.NoError(t, err)
	assert.Equal(t, "ACME OBRAS LTDA", got.LegalName)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookup_PermanentError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"CNPJ inválido"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), WithBackoff(fastBackoff()))
	_, err := c.Lookup(context.Background(), "123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLookup_EmptyPayloadIsMiss(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cnpj":"12345678000190"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := c.Lookup(context.Background(), "12345678000190")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLookup_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithBackoff(resilience.Backoff{Attempts: 1}),
		WithBreaker(resilience.NewBreaker("registry-test", 2, time.Minute, nil)),
	)

	for i := 0; i < 2; i++ {
		_, err := c.Lookup(context.Background(), "12345678000190")
		require.Error(t, err)
	}
	_, err := c.Lookup(context.Background(), "12345678000190")
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegion(t *testing.T) {
	assert.Equal(t, "Recife - PE", region(" Recife ", "PE"))
	assert.Equal(t, "PE", region("", "PE"))
	assert.Equal(t, "Recife", region("Recife", ""))
	assert.Equal(t, "", region("", ""))
}

func TestLookup_BreakerSettingsIgnoreMisses(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithBackoff(resilience.Backoff{Attempts: 1}),
		WithBreakerSettings(1, time.Minute),
	)
	for i := 0; i < 3; i++ {
		_, err := c.Lookup(context.Background(), "00000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(3), calls.Load())
}

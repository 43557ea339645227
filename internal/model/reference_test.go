package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		want ReferenceKind
	}{
		{"https://example.org/result-page", ReferenceHTMLURL},
		{"https://example.org/ata.pdf", ReferencePDFURL},
		{"https://example.org/ATA-FINAL.PDF?download=1", ReferencePDFURL},
		{"https://example.org/pdf/viewer", ReferenceHTMLURL},
		{"not a url at all", ReferenceHTMLURL},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyURL(tt.url))
		})
	}
}

func TestNewURLReference_TrimsSpace(t *testing.T) {
	ref := NewURLReference("  https://example.org/a.pdf \n")
	assert.Equal(t, ReferencePDFURL, ref.Kind)
	assert.Equal(t, "https://example.org/a.pdf", ref.Value)
}

func TestReferenceKind_Valid(t *testing.T) {
	assert.True(t, ReferenceRawText.Valid())
	assert.True(t, ReferenceHTMLFragment.Valid())
	assert.False(t, ReferenceKind("ftp").Valid())
	assert.True(t, ReferenceHTMLURL.IsURL())
	assert.False(t, ReferenceRawText.IsURL())
}

func TestReference_MarshalJSON_URL(t *testing.T) {
	data, err := json.Marshal(NewURLReference("https://example.org/result-page"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"html-url","value":"https://example.org/result-page"}`, string(data))
}

func TestReference_MarshalJSON_TextIsExcerpted(t *testing.T) {
	text := strings.Repeat("á", 500)
	data, err := json.Marshal(NewTextReference(text))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "raw-text", out["kind"])
	assert.EqualValues(t, 500, out["length"])
	assert.True(t, strings.HasSuffix(out["value"].(string), "..."))
	assert.Less(t, len([]rune(out["value"].(string))), 200)
}

func TestReference_String(t *testing.T) {
	assert.Equal(t, "pdf-url:https://x.org/a.pdf", NewURLReference("https://x.org/a.pdf").String())
	assert.Equal(t, "raw-text:short", NewTextReference("short").String())
}

func TestStatus_Excluded(t *testing.T) {
	assert.True(t, StatusAwarded.Excluded())
	assert.True(t, StatusHomologatedWinner.Excluded())
	assert.False(t, StatusDisqualified.Excluded())
	assert.False(t, StatusIneligible.Excluded())
	assert.False(t, StatusExtractionFailed.Excluded())
}

func TestNewPartialLead(t *testing.T) {
	rec := ExtractionRecord{CompanyName: "Acme Ltda", Status: StatusIneligible, LossReason: "sem atestado"}
	lead := NewPartialLead(rec, RegistryUnavailable)

	assert.Equal(t, "Acme Ltda", lead.CompanyName)
	assert.Equal(t, "sem atestado", lead.LossReason)
	assert.Equal(t, Unavailable, lead.DecisionMaker)
	assert.Equal(t, Unavailable, lead.ContactSearchURL)
	assert.False(t, lead.PhoneFormatValid)
	assert.Equal(t, RegistryUnavailable, lead.RegistryStatus)
}

package model

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ReferenceKind discriminates what a Reference points at.
type ReferenceKind string

const (
	ReferenceHTMLURL      ReferenceKind = "html-url"
	ReferencePDFURL       ReferenceKind = "pdf-url"
	ReferenceRawText      ReferenceKind = "raw-text"
	ReferenceHTMLFragment ReferenceKind = "html-fragment"
)

// IsURL reports whether the kind carries a URL rather than literal content.
func (k ReferenceKind) IsURL() bool {
	return k == ReferenceHTMLURL || k == ReferencePDFURL
}

// Valid reports whether k is one of the known kinds.
func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferenceHTMLURL, ReferencePDFURL, ReferenceRawText, ReferenceHTMLFragment:
		return true
	default:
		return false
	}
}

// Reference identifies one unit of input: a URL to fetch or literal content.
// References are values and are never mutated after construction.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// NewURLReference builds a Reference for a URL, choosing pdf-url or html-url
// from the URL path.
func NewURLReference(raw string) Reference {
	raw = strings.TrimSpace(raw)
	return Reference{Kind: ClassifyURL(raw), Value: raw}
}

// NewTextReference wraps a pre-extracted text blob.
func NewTextReference(text string) Reference {
	return Reference{Kind: ReferenceRawText, Value: text}
}

// NewFragmentReference wraps an HTML fragment captured client-side.
func NewFragmentReference(html string) Reference {
	return Reference{Kind: ReferenceHTMLFragment, Value: html}
}

// ClassifyURL returns ReferencePDFURL when the URL path ends in .pdf and
// ReferenceHTMLURL otherwise.
func ClassifyURL(raw string) ReferenceKind {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return ReferencePDFURL
	}
	return ReferenceHTMLURL
}

// provenanceExcerptRunes bounds how much of a text reference is echoed back
// in JSON output.
const provenanceExcerptRunes = 160

type referenceJSON struct {
	Kind   ReferenceKind `json:"kind"`
	Value  string        `json:"value"`
	Length int           `json:"length,omitempty"`
}

// MarshalJSON renders URL references verbatim and text references as an
// excerpt plus the full length.
func (r Reference) MarshalJSON() ([]byte, error) {
	out := referenceJSON{Kind: r.Kind, Value: r.Value}
	if !r.Kind.IsURL() {
		out.Length = utf8.RuneCountInString(r.Value)
		out.Value = excerpt(r.Value, provenanceExcerptRunes)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the rendered form. Text references decoded this way
// hold only the excerpt.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var in referenceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Kind = in.Kind
	r.Value = in.Value
	return nil
}

// String returns a short human-readable form for logs.
func (r Reference) String() string {
	if r.Kind.IsURL() {
		return string(r.Kind) + ":" + r.Value
	}
	return string(r.Kind) + ":" + excerpt(r.Value, 40)
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

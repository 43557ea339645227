package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/procurement-leads/internal/model"
)

// Envelope kinds accepted in the typed single-reference body.
const (
	EnvelopeFullText   = "full-text"
	EnvelopeURLList    = "url-list"
	EnvelopeHTMLBlocks = "html-blocks"
)

// BadRequestError is a client error reported as 400.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// AnalyzeRequest is the body of POST /analyze. Exactly one of References,
// Text or Reference is set. Pistas is an alias of References.
type AnalyzeRequest struct {
	References []string  `json:"references,omitempty"`
	Pistas     []string  `json:"pistas,omitempty"`
	Text       *string   `json:"text,omitempty"`
	Reference  *Envelope `json:"reference,omitempty"`
}

// Envelope is a typed single reference.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ParseAnalyzeRequest decodes body into References.
func ParseAnalyzeRequest(body []byte) ([]model.Reference, error) {
	var req AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, badRequest("invalid request body: %v", err)
	}
	return req.Resolve()
}

// Resolve turns the request into pipeline input.
func (r AnalyzeRequest) Resolve() ([]model.Reference, error) {
	urls := append(append([]string(nil), r.References...), r.Pistas...)

	shapes := 0
	if r.References != nil || r.Pistas != nil {
		shapes++
	}
	if r.Text != nil {
		shapes++
	}
	if r.Reference != nil {
		shapes++
	}
	switch {
	case shapes == 0:
		return nil, badRequest("body must contain references, text or reference")
	case shapes > 1:
		return nil, badRequest("body must contain only one of references, text or reference")
	}

	switch {
	case r.Text != nil:
		return textReference(*r.Text)
	case r.Reference != nil:
		return r.Reference.resolve()
	}
	return urlReferences(urls)
}

func textReference(text string) ([]model.Reference, error) {
	if strings.TrimSpace(text) == "" {
		return nil, badRequest("text is empty")
	}
	return []model.Reference{model.NewTextReference(text)}, nil
}

func urlReferences(urls []string) ([]model.Reference, error) {
	refs := make([]model.Reference, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		refs = append(refs, model.NewURLReference(u))
	}
	if len(refs) == 0 {
		return nil, badRequest("references is empty")
	}
	return refs, nil
}

func (e *Envelope) resolve() ([]model.Reference, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, badRequest("reference.data is required")
	}

	switch e.Kind {
	case EnvelopeFullText:
		var text string
		if err := json.Unmarshal(e.Data, &text); err != nil {
			return nil, badRequest("reference.data must be a string for %s", e.Kind)
		}
		return textReference(text)

	case EnvelopeURLList:
		var urls []string
		if err := json.Unmarshal(e.Data, &urls); err != nil {
			return nil, badRequest("reference.data must be an array of strings for %s", e.Kind)
		}
		return urlReferences(urls)

	case EnvelopeHTMLBlocks:
		blocks, err := stringOrList(e.Data)
		if err != nil {
			return nil, badRequest("reference.data must be a string or an array of strings for %s", e.Kind)
		}
		kept := blocks[:0]
		for _, b := range blocks {
			if strings.TrimSpace(b) != "" {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			return nil, badRequest("reference.data has no html blocks")
		}
		return []model.Reference{model.NewFragmentReference(strings.Join(kept, "\n\n"))}, nil
	}
	return nil, badRequest("unknown reference.kind %q", e.Kind)
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

package model

// ContentKind describes the shape of acquired text.
type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentHTML ContentKind = "html"
	ContentPDF  ContentKind = "pdf"
)

// AcquiredContent is the plain text resolved from one Reference.
type AcquiredContent struct {
	Source   Reference
	Text     string
	Kind     ContentKind
	Strategy string // e.g. "passthrough", "static", "rendered", "remote", "document"
}

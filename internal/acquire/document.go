package acquire

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/procurement-leads/internal/model"
)

// acquireDocument downloads a PDF and decodes its text.
func (a *Acquirer) acquireDocument(ctx context.Context, ref model.Reference) (model.AcquiredContent, error) {
	if a.docs == nil {
		return model.AcquiredContent{}, newError(UnsupportedReferenceKind, ref, eris.New("acquire: no document extractor configured"))
	}

	pdf, err := a.download(ctx, ref)
	if err != nil {
		return model.AcquiredContent{}, err
	}

	text, err := a.docs.ExtractText(ctx, pdf)
	if err != nil {
		if ctx.Err() != nil {
			return model.AcquiredContent{}, transportError(ctx, ref, err)
		}
		return model.AcquiredContent{}, newError(UnreadableDocument, ref, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.AcquiredContent{}, newError(UnreadableDocument, ref, eris.New("acquire: document has no text layer"))
	}
	return model.AcquiredContent{Source: ref, Text: text, Kind: model.ContentPDF, Strategy: strategyDocument}, nil
}

func (a *Acquirer) download(ctx context.Context, ref model.Reference) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Value, nil)
	if err != nil {
		return nil, newError(NetworkError, ref, eris.Wrap(err, "acquire: create request"))
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, ref, eris.Wrap(err, "acquire: download"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(NetworkError, ref, eris.Errorf("acquire: status %d", resp.StatusCode))
	}
	if resp.ContentLength > a.maxDocBytes {
		return nil, newError(UnreadableDocument, ref, eris.Errorf("acquire: document is %d bytes, limit %d", resp.ContentLength, a.maxDocBytes))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxDocBytes+1))
	if err != nil {
		return nil, transportError(ctx, ref, eris.Wrap(err, "acquire: read document"))
	}
	if int64(len(body)) > a.maxDocBytes {
		return nil, newError(UnreadableDocument, ref, eris.Errorf("acquire: document exceeds %d bytes", a.maxDocBytes))
	}
	if len(body) == 0 {
		return nil, newError(UnreadableDocument, ref, eris.New("acquire: empty document"))
	}
	return body, nil
}

package acquire

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/procurement-leads/internal/model"
)

// maxPageBytes caps how much of a static page is read.
const maxPageBytes = 8 << 20

// Elements whose text never belongs to a procurement result.
const droppedSelector = "script, style, noscript, iframe, svg, nav, footer"

// Elements that end a line of visible text.
const blockSelector = "p, div, tr, li, ul, ol, table, section, article, header, h1, h2, h3, h4, h5, h6, dt, dd, blockquote, pre"

// Table cells are separated by a space so adjacent columns don't merge.
const cellSelector = "td, th"

// fetchStatic GETs the page and returns its visible text.
func (a *Acquirer) fetchStatic(ctx context.Context, ref model.Reference) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Value, nil)
	if err != nil {
		return "", newError(NetworkError, ref, eris.Wrap(err, "acquire: create request"))
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", transportError(ctx, ref, eris.Wrap(err, "acquire: fetch"))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", transportError(ctx, ref, eris.Wrap(err, "acquire: read body"))
	}

	if block := DetectBlock(resp, body); block != BlockNone {
		return "", newError(NetworkError, ref, eris.Errorf("acquire: blocked (%s)", block))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newError(NetworkError, ref, eris.Errorf("acquire: status %d", resp.StatusCode))
	}

	text, err := ExtractText(body)
	if err != nil {
		return "", newError(UnreadableDocument, ref, err)
	}
	if text == "" {
		return "", newError(UnreadableDocument, ref, eris.New("acquire: page has no visible text"))
	}
	return text, nil
}

// ExtractText returns the visible text of an HTML document with navigation
// chrome removed. Block elements end a line; runs of whitespace collapse.
func ExtractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "acquire: parse html")
	}

	doc.Find(droppedSelector).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).AppendHtml("\n")
	doc.Find(cellSelector).AppendHtml(" ")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return collapseWhitespace(root.Text()), nil
}

// collapseWhitespace trims every line, squeezes inner runs of spaces and
// drops empty lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}

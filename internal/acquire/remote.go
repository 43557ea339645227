package acquire

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/procurement-leads/pkg/jina"
)

// JinaRenderer renders pages remotely through Jina Reader, for hosts where
// no local browser can be installed.
type JinaRenderer struct {
	client      jina.Client
	timeoutSecs int
}

// NewJinaRenderer wraps a Jina client. timeoutSecs bounds the remote render.
func NewJinaRenderer(client jina.Client, timeoutSecs int) *JinaRenderer {
	return &JinaRenderer{client: client, timeoutSecs: timeoutSecs}
}

// Name implements Renderer.
func (r *JinaRenderer) Name() string { return "remote" }

// Render implements Renderer.
func (r *JinaRenderer) Render(ctx context.Context, url string) (string, error) {
	var opts []jina.ReadOption
	if r.timeoutSecs > 0 {
		opts = append(opts, jina.WithTimeout(r.timeoutSecs))
	}
	resp, err := r.client.Read(ctx, url, opts...)
	if err != nil {
		return "", eris.Wrap(err, "acquire: remote render")
	}
	return resp.Data.Content, nil
}

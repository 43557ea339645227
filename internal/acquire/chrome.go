package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/config"
)

// expandableSelector matches elements that commonly reveal collapsed result
// sections when clicked.
const expandableSelector = "button, a, summary, [role=button], [onclick]"

// expandScript clicks every expandable element whose text contains one of
// the terms. Anchors that would navigate away are left alone. It returns the
// number of clicks.
const expandScript = `(function(terms) {
	var clicked = 0;
	document.querySelectorAll(%q).forEach(function(el) {
		if (el.tagName === 'A') {
			var href = (el.getAttribute('href') || '').trim();
			if (href !== '' && href.charAt(0) !== '#' && href.indexOf('javascript:') !== 0) {
				return;
			}
		}
		var text = (el.innerText || el.textContent || '').toLowerCase();
		if (!text) {
			return;
		}
		for (var i = 0; i < terms.length; i++) {
			if (text.indexOf(terms[i]) !== -1) {
				try { el.click(); clicked++; } catch (e) {}
				return;
			}
		}
	});
	return clicked;
})(%s)`

// ChromeRenderer loads a page in a fresh headless Chrome per call. The
// browser process is owned by the Render call and killed on every exit
// path.
type ChromeRenderer struct {
	execPath  string
	userAgent string
	timeout   time.Duration
	settle    time.Duration
	terms     []string
}

// NewChromeRenderer creates a ChromeRenderer from acquisition config.
func NewChromeRenderer(cfg config.AcquireConfig) *ChromeRenderer {
	r := &ChromeRenderer{
		execPath:  cfg.ChromePath,
		userAgent: cfg.UserAgent,
		timeout:   time.Duration(cfg.RenderTimeoutSecs) * time.Second,
		settle:    time.Duration(cfg.SettleMillis) * time.Millisecond,
		terms:     normalizeTerms(cfg.ExpansionTerms),
	}
	if r.userAgent == "" {
		r.userAgent = defaultUserAgent
	}
	if r.timeout <= 0 {
		r.timeout = 60 * time.Second
	}
	return r
}

// Name implements Renderer.
func (r *ChromeRenderer) Name() string { return "rendered" }

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("single-process", true),
		chromedp.UserAgent(r.userAgent),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

// Render navigates to url, waits for the network to go idle, expands
// collapsed sections, lets the page settle and returns document.body.innerText.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, r.timeout)
	defer cancelTimeout()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	idle := newIdleWatch()
	chromedp.ListenTarget(tabCtx, idle.observe)

	if err := chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameID, loaderID, errorText, isDownload, err := page.Navigate(url).Do(ctx)
			switch {
			case err != nil:
				return err
			case errorText != "":
				return eris.Errorf("page load error %s", errorText)
			case isDownload:
				return eris.New("navigation started a download")
			}
			idle.expect(frameID, loaderID)
			return nil
		}),
	); err != nil {
		return "", eris.Wrapf(err, "acquire: navigate %s", url)
	}

	select {
	case <-idle.Done():
	case <-tabCtx.Done():
		return "", eris.Wrapf(tabCtx.Err(), "acquire: waiting for network idle on %s", url)
	}

	if len(r.terms) > 0 {
		var clicked int
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(expansionScript(r.terms), &clicked)); err != nil {
			// Expansion is best effort; the unexpanded text may still hold results.
			zap.L().Debug("acquire: expansion failed", zap.String("url", url), zap.Error(err))
		} else if clicked > 0 {
			zap.L().Debug("acquire: expanded sections", zap.String("url", url), zap.Int("clicked", clicked))
		}
	}

	var text string
	if err := chromedp.Run(tabCtx,
		chromedp.Sleep(r.settle),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	); err != nil {
		return "", eris.Wrapf(err, "acquire: read text from %s", url)
	}
	return text, nil
}

func expansionScript(terms []string) string {
	encoded, _ := json.Marshal(terms)
	return fmt.Sprintf(expandScript, expandableSelector, encoded)
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

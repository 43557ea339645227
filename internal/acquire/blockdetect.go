package acquire

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// BlockType describes an anti-bot or access wall found on a fetched page.
type BlockType string

const (
	BlockNone         BlockType = ""
	BlockCloudflare   BlockType = "cloudflare"
	BlockCaptcha      BlockType = "captcha"
	BlockAccessDenied BlockType = "access_denied"
	BlockJSShell      BlockType = "js_shell"
)

// captchaWallMaxText is the most visible text a captcha page may carry.
// Result pages that merely embed a captcha widget have far more.
const captchaWallMaxText = 600

var (
	captchaMarkers = []string{"captcha", "recaptcha", "hcaptcha"}
	deniedMarkers  = []string{"access denied", "acesso negado", "request blocked", "forbidden"}
)

// DetectBlock inspects a static response for walls that make its text
// worthless. A JS shell is not fatal: the rendered strategy can still read
// the page.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return BlockCloudflare
	}
	if captchaWall(lower, body) {
		return BlockCaptcha
	}

	if len(body) < 4096 {
		for _, m := range deniedMarkers {
			if strings.Contains(lower, "<title>"+m) || strings.Contains(lower, "<h1>"+m) {
				return BlockAccessDenied
			}
		}
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}

// captchaWall reports a page that is a captcha challenge rather than a page
// that embeds one: the marker is in the title, or the page has almost no
// visible text besides it.
func captchaWall(lower string, body []byte) bool {
	found := false
	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if start := strings.Index(lower, "<title"); start >= 0 {
		if end := strings.Index(lower[start:], "</title>"); end >= 0 {
			title := lower[start : start+end]
			for _, m := range captchaMarkers {
				if strings.Contains(title, m) {
					return true
				}
			}
		}
	}
	text, err := ExtractText(body)
	if err != nil {
		return true
	}
	return utf8.RuneCountInString(text) < captchaWallMaxText
}

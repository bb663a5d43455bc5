package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockAkamai     BlockType = "akamai"
	BlockCaptcha    BlockType = "captcha"
)

// DetectBlock checks a response for signs of anti-bot protection. Only
// interstitial pages are reported; a normal catalog page that happens to
// mention a captcha in a script is not.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
		if strings.Contains(strings.ToLower(resp.Header.Get("server")), "akamaighost") {
			return true, BlockAkamai
		}
	}

	// Interstitials are small; real PartSurfer and buy.hpe.com pages are not.
	if len(body) > 64<<10 {
		return false, BlockNone
	}
	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-chl-") {
		return true, BlockCloudflare
	}
	if strings.Contains(lower, "access denied") && strings.Contains(lower, "reference #") {
		return true, BlockAkamai
	}
	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "please verify you are a human") {
		return true, BlockCaptcha
	}

	return false, BlockNone
}

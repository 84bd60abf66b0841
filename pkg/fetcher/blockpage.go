package fetcher

import (
	"strings"
)

// blockMarkers are matched case-insensitively against response bodies.
// Order matters only for the name reported back.
var blockMarkers = []struct {
	marker string
	kind   string
}{
	{"px-captcha", "perimeterx"},
	{"perimeterx", "perimeterx"},
	{"press & hold", "perimeterx"},
	{"cf-challenge", "cloudflare"},
	{"cf_chl_opt", "cloudflare"},
	{"just a moment...", "cloudflare"},
	{"g-recaptcha", "recaptcha"},
	{"h-captcha", "hcaptcha"},
	{"captcha", "captcha"},
	{"access denied", "access-denied"},
	{"access to this page has been denied", "access-denied"},
	{"blocked", "blocked"},
}

// DetectBlockPage checks if an HTTP-successful body is an anti-automation
// interstitial. It returns the kind of block detected, or "" for clean
// content.
func DetectBlockPage(body string) string {
	lower := strings.ToLower(body)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m.marker) {
			return m.kind
		}
	}
	return ""
}

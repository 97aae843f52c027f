package normalizer

import (
	"strings"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// Browser family labels returned by DetectBrowser
const (
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserOther   = "Other"
)

// DetectBrowser maps a raw User-Agent string to a browser family label.
// Rule order matters: Chromium-based browsers carry "chrome" and "safari"
// tokens, and Chrome itself carries "safari".
// The fields argument is unused; it keeps the domain.Transform signature.
func DetectBrowser(userAgent string, _ domain.Fields) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		return BrowserEdge
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return BrowserOpera
	case strings.Contains(ua, "chrome"):
		return BrowserChrome
	case strings.Contains(ua, "firefox") || strings.Contains(ua, "fxios"):
		return BrowserFirefox
	case strings.Contains(ua, "safari"):
		return BrowserSafari
	default:
		return BrowserOther
	}
}

var _ domain.Transform = DetectBrowser

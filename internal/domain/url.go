package domain

import "strings"

// internalSchemes are privileged URL schemes that must never be persisted
// into a snapshot or restored into a tab. Filtered at both capture and
// restore time.
var internalSchemes = []string{
	"chrome:",
	"chrome-extension:",
	"chrome-untrusted:",
	"chrome-search:",
	"devtools:",
	"edge:",
	"brave:",
	"opera:",
	"vivaldi:",
	"about:",
	"view-source:",
}

// BlankTabURL is the neutral URL used for anchor and fallback tabs
const BlankTabURL = "about:blank"

// IsInternalURL reports whether rawURL uses an internal/privileged scheme.
// An empty URL counts as internal (nothing meaningful to persist).
func IsInternalURL(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

package model

import (
	"regexp"
	"strings"
)

// patentPathPattern matches the id segment of a patent detail URL, e.g.
// https://patents.google.com/patent/US1234567A/en -> US1234567A.
var patentPathPattern = regexp.MustCompile(`/patent/([^/]+)/`)

// NormalizeID canonicalizes a raw patent identifier for comparison:
// surrounding whitespace trimmed, uppercased, internal whitespace and
// hyphens removed. Idempotent; empty input yields empty output.
func NormalizeID(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-':
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractIDFromURL pulls the patent identifier out of a detail-page URL.
// Returns empty if the URL does not contain a /patent/<ID>/ segment.
func ExtractIDFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	m := patentPathPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Resolve derives the canonical identity key from whichever source is
// available: an explicit identifier wins over a URL-embedded one. The result
// is normalized; empty means the record cannot be deduplicated or marked
// processed. Resolve is pure and never fails on malformed input.
func Resolve(explicitID, url string) string {
	if k := NormalizeID(explicitID); k != "" {
		return k
	}
	return NormalizeID(ExtractIDFromURL(url))
}

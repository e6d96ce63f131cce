package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/beaconlog/pkg/config"
)

// Redactor scrubs device identifiers and secrets from log fields.
// Raw hardware addresses must never appear in logs; only hashed device
// tokens may.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternMACAddress  = "mac_address"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a new Redactor with default and custom patterns.
// Invalid custom patterns are skipped; config validation reports them.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	r.patterns = append(r.patterns,
		&redactPattern{
			name:        PatternMACAddress,
			regex:       regexp.MustCompile(`\b([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
			replacement: "XX:XX:XX:XX:XX:XX",
		},
		&redactPattern{
			name:        PatternBearerToken,
			regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
			replacement: "Bearer ***",
		},
	)

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// PatternCount returns the number of active patterns.
func (r *Redactor) PatternCount() int {
	return len(r.patterns)
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactAttr redacts a single attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey reports whether a key names secret material.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	for _, sensitive := range []string{"hash_key", "secret", "password", "authorization"} {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// Package redact strips session material from values before they are
// written to logs or mirrored to the audit room.
//
// The legacy console embeds the session token in the first path segment of
// every URL (e.g. https://host/~$123~abcdef/notes/), so a raw URL in a log
// line is as sensitive as the session cookie itself.
package redact

import (
	"net/url"
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED].  Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// URL returns raw with its session path segment and any query values whose
// key looks like a credential replaced by [REDACTED]. Unparseable input is
// returned fully redacted.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return placeholder
	}
	path := u.Path
	segs := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	if len(segs) > 0 && isSessionSegment(segs[0]) {
		segs[0] = placeholder
		path = "/" + strings.Join(segs, "/")
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	b.WriteString(path)
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if isSensitiveKey(k) {
				q.Set(k, placeholder)
			}
		}
		b.WriteString("?")
		b.WriteString(strings.ReplaceAll(q.Encode(), url.QueryEscape(placeholder), placeholder))
	}
	return b.String()
}

// isSessionSegment reports whether a path segment carries a session prefix.
func isSessionSegment(seg string) bool {
	return strings.HasPrefix(seg, "~")
}

// isSensitiveKey returns true when the key name suggests it holds a secret.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "session", "sid", "auth"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Package timezone renders timestamps the way they are stored and displayed:
// shifted to a fixed +09:00 offset, second precision, no zone suffix.
package timezone

import (
	"time"
)

const (
	Layout = "2006-01-02 15:04:05"
	offset = 9 * 60 * 60
)

var JST = time.FixedZone("JST", offset)

// Format renders t in JST, dropping any sub-second fraction.
func Format(t time.Time) string {
	return t.In(JST).Truncate(time.Second).Format(Layout)
}

// FormatRFC3339 converts an upstream RFC 3339 timestamp. Empty or unparsable
// input yields an empty string.
func FormatRFC3339(text string) string {
	if text == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return ""
	}
	return Format(t)
}

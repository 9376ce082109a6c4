package parse

import (
	"fmt"
	"strings"
	"time"
)

// layouts are tried in order. Zoneless layouts are read as UTC.
var layouts = []struct {
	layout   string
	zoneless bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999Z0700", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999Z07:00", false},
	{"2006-01-02 15:04:05.999999999", true},
}

// Timestamp parses an ISO-8601 timestamp as written by the admin tooling
// and event schedulers. The result is always in UTC.
func Timestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, l := range layouts {
		var (
			t   time.Time
			err error
		)
		if l.zoneless {
			t, err = time.ParseInLocation(l.layout, s, time.UTC)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", raw)
}

// FormatTimestamp renders t for log and error messages: UTC, millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

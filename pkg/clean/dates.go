package clean

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Ambiguous numeric dates are read month first.
// The tail covers the forms left once sanitization strips slashes, colons and
// commas.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/2006 15:04:05",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"20060102",
	time.RFC1123Z,
	time.RFC1123,

	"2006-01-02T150405Z",
	"2006-01-02T150405",
	"2006-01-02 150405",
	"2006-01-02 1504",
	"01022006",
	"01022006 150405",
	"January 2 2006",
	"Mon 02 Jan 2006 150405 MST",
}

// ParseDate parses s as a calendar date using the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package extract

import (
	"fmt"
	"regexp"
	"time"
)

// localDateTime is the only shape accepted: two-digit fields, a dot before
// at most nine fraction digits, no zone.
var localDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d{1,9})?)?$`)

// Layouts for values that passed localDateTime. time.Parse reads a
// fraction after the seconds without it being named in the layout.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a naive local date-time such as
// 2016-01-01T00:00:00 or 2013-11-08T00:00:00.000001. Values carrying a zone
// offset are rejected. The result is in UTC and only meaningful for
// comparison with other values parsed the same way.
func ParseTimestamp(s string) (time.Time, error) {
	if !localDateTime.MatchString(s) {
		return time.Time{}, fmt.Errorf("parse timestamp %q: not a local date-time", s)
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, firstErr)
}

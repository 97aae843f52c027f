package accesslog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// timestampLayouts are the ISO 8601 shapes accepted in @timestamp.
// Layouts without an offset parse as UTC; only the written date is used.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	domain.DateLayout,
}

// ParseTimestamp parses an ISO 8601 timestamp, keeping its own offset
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractRecordDate returns the calendar date of the @timestamp field.
// The second result is false when the field is absent, not a string or not ISO 8601.
func ExtractRecordDate(fields domain.Fields) (domain.Date, bool) {
	raw, ok := fields[domain.FieldTimestamp]
	if !ok {
		return domain.Date{}, false
	}

	var ts string
	if err := json.Unmarshal(raw, &ts); err != nil {
		return domain.Date{}, false
	}

	t, ok := ParseTimestamp(ts)
	if !ok {
		return domain.Date{}, false
	}
	return domain.DateOf(t), true
}

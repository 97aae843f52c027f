package domain

import "encoding/json"

// Fields is a parsed access log line keyed by field name.
// Values stay as raw JSON so callers decide how to interpret them.
type Fields map[string]json.RawMessage

// Transform maps a raw group value to the final group key
// The full parsed line is passed along for transforms that need more context
type Transform func(raw string, fields Fields) string

// RawRecord is a single validated (group, response_time) pair extracted from a log line
type RawRecord struct {
	Group        string  `json:"group"`
	ResponseTime float64 `json:"response_time"`
}

// ReportRow is one aggregated line of the report
type ReportRow struct {
	Group           string  `json:"group"`
	Total           int     `json:"total"`
	AvgResponseTime float64 `json:"avg_response_time"` // rounded to 3 decimals
}

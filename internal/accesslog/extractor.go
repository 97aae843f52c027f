package accesslog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// Outcome tells what happened to a single line
type Outcome int

const (
	OutcomeRecord      Outcome = iota // a record was produced
	OutcomeBlank                      // empty line, ignored
	OutcomeSkipped                    // valid JSON that did not qualify
	OutcomeDecodeError                // not a JSON object
)

var errNotObject = errors.New("not a JSON object")

// decimalPattern is the accepted form of a numeric string: no hex, no underscores, no inf/nan
var decimalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// Extractor turns access log lines into raw records
type Extractor struct {
	GroupField string           // url or http_user_agent
	Date       *domain.Date     // nil disables the date filter
	Transform  domain.Transform // nil keeps the raw group value
}

// Extract parses one line.
// An error is returned only for OutcomeDecodeError; other skips are silent.
func (e *Extractor) Extract(line string) (domain.RawRecord, Outcome, error) {
	line = strings.TrimPrefix(line, "\ufeff")
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.RawRecord{}, OutcomeBlank, nil
	}

	var fields domain.Fields
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return domain.RawRecord{}, OutcomeDecodeError, fmt.Errorf("invalid JSON: %w", err)
	}
	// "null" unmarshals into a nil map without error
	if fields == nil {
		return domain.RawRecord{}, OutcomeDecodeError, fmt.Errorf("invalid JSON: %w", errNotObject)
	}

	rawGroup, hasGroup := fields[e.GroupField]
	rawTime, hasTime := fields[domain.FieldResponseTime]
	if !hasGroup || !hasTime {
		return domain.RawRecord{}, OutcomeSkipped, nil
	}

	if e.Date != nil {
		date, ok := ExtractRecordDate(fields)
		if !ok || date != *e.Date {
			return domain.RawRecord{}, OutcomeSkipped, nil
		}
	}

	responseTime, ok := parseResponseTime(rawTime)
	if !ok {
		return domain.RawRecord{}, OutcomeSkipped, nil
	}

	group := textValue(rawGroup)
	if e.Transform != nil {
		group = e.Transform(group, fields)
	}

	return domain.RawRecord{Group: group, ResponseTime: responseTime}, OutcomeRecord, nil
}

// parseResponseTime accepts JSON numbers, numeric strings and booleans.
// Non-finite values are rejected.
func parseResponseTime(raw json.RawMessage) (float64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}

	var (
		f   float64
		err error
	)
	switch val := v.(type) {
	case json.Number:
		f, err = strconv.ParseFloat(val.String(), 64)
	case string:
		val = strings.TrimSpace(val)
		if !decimalPattern.MatchString(val) {
			return 0, false
		}
		f, err = strconv.ParseFloat(val, 64)
	case bool:
		if val {
			f = 1
		}
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// textValue returns the textual form of a JSON value:
// strings unquoted, everything else as compact JSON text
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

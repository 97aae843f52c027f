package domain

import "fmt"

// ReportKind selects the grouping dimension of a report
type ReportKind string

const (
	KindURL       ReportKind = "url"
	KindUserAgent ReportKind = "useragent"
	KindBrowser   ReportKind = "browser"
)

// Log field names recognized in access log lines
const (
	FieldURL          = "url"
	FieldUserAgent    = "http_user_agent"
	FieldResponseTime = "response_time"
	FieldTimestamp    = "@timestamp"
)

// ReportKinds lists the accepted kinds in help order
var ReportKinds = []ReportKind{KindURL, KindUserAgent, KindBrowser}

// ParseReportKind validates a report kind name
func ParseReportKind(s string) (ReportKind, error) {
	for _, k := range ReportKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown report kind %q (use url, useragent or browser)", s)
}

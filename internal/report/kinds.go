package report

import (
	"fmt"

	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/normalizer"
)

// KindSpec is what a report kind resolves to
type KindSpec struct {
	GroupField string           // log field used as the group key, also the CSV header
	Transform  domain.Transform // nil when the raw value is the key
	Label      string           // console table header for the group column
}

var kindSpecs = map[domain.ReportKind]KindSpec{
	domain.KindURL: {
		GroupField: domain.FieldURL,
		Label:      "url",
	},
	domain.KindUserAgent: {
		GroupField: domain.FieldUserAgent,
		Label:      "http_user_agent",
	},
	domain.KindBrowser: {
		GroupField: domain.FieldUserAgent,
		Transform:  normalizer.DetectBrowser,
		Label:      "browser",
	},
}

// SpecFor returns the group field, transform and label for a report kind
func SpecFor(kind domain.ReportKind) (KindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("unknown report kind: %s", kind)
	}
	return spec, nil
}

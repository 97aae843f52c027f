package writer

import (
	"strings"
	"testing"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

func TestRenderChart(t *testing.T) {
	tests := []struct {
		name      string
		rows      []domain.ReportRow
		wantEmpty bool
	}{
		{name: "no rows", rows: nil, wantEmpty: true},
		{name: "single row", rows: []domain.ReportRow{{Group: "/a", Total: 1, AvgResponseTime: 0.5}}},
		{
			name: "several rows",
			rows: []domain.ReportRow{
				{Group: "/a", Total: 3, AvgResponseTime: 0.233},
				{Group: "/b", Total: 2, AvgResponseTime: 1.5},
				{Group: "/c", Total: 1, AvgResponseTime: 0.75},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderChart(tt.rows, 40, 5)
			if tt.wantEmpty {
				if out != "" {
					t.Errorf("RenderChart() = %q, want empty", out)
				}
				return
			}
			if !strings.Contains(out, "avg_response_time") {
				t.Errorf("RenderChart() missing caption:\n%s", out)
			}
		})
	}
}

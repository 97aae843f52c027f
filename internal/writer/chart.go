package writer

import (
	"github.com/guptarohit/asciigraph"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// RenderChart plots the average response time of each row in report order.
// Returns an empty string when there is nothing to plot.
func RenderChart(rows []domain.ReportRow, width, height int) string {
	if len(rows) == 0 {
		return ""
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	data := make([]float64, 0, len(rows)+1)
	for _, row := range rows {
		data = append(data, row.AvgResponseTime)
	}
	// asciigraph needs two points to draw a line
	if len(data) == 1 {
		data = append(data, data[0])
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption("avg_response_time by group, report order"),
	)
}

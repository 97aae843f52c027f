package writer

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// RenderTable renders rows as a console table.
// label is the header of the group column (url, http_user_agent or browser).
func RenderTable(label string, rows []domain.ReportRow) string {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{row.Group, strconv.Itoa(row.Total), FormatAvg(row.AvgResponseTime)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(label, ColumnTotal, ColumnAvgResponseTime).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}

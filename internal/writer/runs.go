package writer

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

const checksumPrefixLen = 12

// RenderRunList renders recorded runs as a console table, one line per run
func RenderRunList(runs []domain.ReportRun) string {
	data := make([][]string, 0, len(runs))
	for _, run := range runs {
		date := run.DateFilter
		if date == "" {
			date = "-"
		}
		checksum := run.Checksum
		if len(checksum) > checksumPrefixLen {
			checksum = checksum[:checksumPrefixLen]
		}
		data = append(data, []string{
			run.RunID.String(),
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Kind),
			date,
			strconv.Itoa(len(run.Rows)),
			strconv.FormatUint(run.Metrics.RecordsParsed, 10),
			strings.Join(run.Files, ", "),
			checksum,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("run_id", "created_at", "kind", "date", "groups", "records", "files", "checksum").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4 || col == 5:
				return numberStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}

package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/observability"
)

const tracerName = "access-log-report/writer"

// CSVWriter writes the report to run.ReportPath
type CSVWriter struct{}

// NewCSVWriter creates a CSV report writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteReport creates (or truncates) the report file and writes all rows
func (w *CSVWriter) WriteReport(ctx context.Context, run *domain.ReportRun) (err error) {
	_, span := observability.StartSpan(ctx, tracerName, "writer.csv",
		attribute.String("path", run.ReportPath),
		attribute.Int("rows", len(run.Rows)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if dir := filepath.Dir(run.ReportPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.Create(run.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := WriteCSV(file, run.GroupField, run.Rows); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	log.Debug().
		Str("path", run.ReportPath).
		Int("rows", len(run.Rows)).
		Msg("CSV report written")

	return nil
}

// Close is a no-op; the file is closed by WriteReport
func (w *CSVWriter) Close() error {
	return nil
}

// WriteCSV writes the header <groupField>,total,avg_response_time and one line per row
func WriteCSV(out io.Writer, groupField string, rows []domain.ReportRow) error {
	cw := csv.NewWriter(out)
	cw.UseCRLF = true

	if err := cw.Write([]string{groupField, ColumnTotal, ColumnAvgResponseTime}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Group, strconv.Itoa(row.Total), FormatAvg(row.AvgResponseTime)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ReadCSV reads a report written by WriteCSV.
// It returns the group column name and the rows in file order.
func ReadCSV(in io.Reader) (string, []domain.ReportRow, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = 3

	records, err := cr.ReadAll()
	if err != nil {
		return "", nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return "", nil, fmt.Errorf("empty CSV report")
	}

	rows := make([]domain.ReportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		total, err := strconv.Atoi(rec[1])
		if err != nil {
			return "", nil, fmt.Errorf("row %d: invalid total %q: %w", i+1, rec[1], err)
		}
		avg, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return "", nil, fmt.Errorf("row %d: invalid avg_response_time %q: %w", i+1, rec[2], err)
		}
		rows = append(rows, domain.ReportRow{Group: rec[0], Total: total, AvgResponseTime: avg})
	}

	return records[0][0], rows, nil
}

// FormatAvg formats an already rounded average with at most 3 decimals
// and no trailing zeros
func FormatAvg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

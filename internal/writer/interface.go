package writer

import (
	"context"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// ReportWriter persists a finished report run
type ReportWriter interface {
	// WriteReport writes the rows of run
	WriteReport(ctx context.Context, run *domain.ReportRun) error

	// Close releases resources held by the writer
	Close() error
}

// Header column names shared by the CSV file and the console table
const (
	ColumnTotal           = "total"
	ColumnAvgResponseTime = "avg_response_time"
)

package writer

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/observability"
	"github.com/SteelMorgan/access-log-report/internal/retry"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseConfig configures the ClickHouse report writer
type ClickHouseConfig struct {
	Table               string
	Retry               retry.Config
	EnableDeduplication bool // skip runs whose checksum is already stored
}

// ClickHouseWriter exports report rows to ClickHouse, one table row per report row
type ClickHouseWriter struct {
	conn driver.Conn
	cfg  ClickHouseConfig
}

// exportRow is one ClickHouse row, in column order
type exportRow struct {
	RunID           string
	CreatedAt       time.Time
	Kind            string
	GroupField      string
	Group           string
	Total           uint64
	AvgResponseTime float64
	Checksum        string
}

// NewClickHouseWriter creates a new ClickHouse report writer
func NewClickHouseWriter(conn driver.Conn, cfg ClickHouseConfig) (*ClickHouseWriter, error) {
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid ClickHouse table name: %q", cfg.Table)
	}
	return &ClickHouseWriter{conn: conn, cfg: cfg}, nil
}

// CreateTableQuery returns the DDL for the export table
func CreateTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id String,
	created_at DateTime64(3),
	kind LowCardinality(String),
	group_field LowCardinality(String),
	group_key String,
	total UInt64,
	avg_response_time Float64,
	checksum String
) ENGINE = MergeTree
ORDER BY (created_at, run_id)`, table)
}

// EnsureTable creates the export table if it does not exist
func (w *ClickHouseWriter) EnsureTable(ctx context.Context) error {
	return retry.Do(ctx, w.cfg.Retry, func() error {
		return w.conn.Exec(ctx, CreateTableQuery(w.cfg.Table))
	})
}

// WriteReport inserts all rows of run in a single batch
func (w *ClickHouseWriter) WriteReport(ctx context.Context, run *domain.ReportRun) (err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "writer.clickhouse",
		attribute.String("table", w.cfg.Table),
		attribute.Int("rows", len(run.Rows)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if len(run.Rows) == 0 {
		return nil
	}

	if w.cfg.EnableDeduplication {
		exists, err := w.checksumExists(ctx, run.Checksum)
		if err != nil {
			log.Warn().Err(err).Str("checksum", run.Checksum).Msg("Failed to check checksum existence, will try to insert")
		} else if exists {
			log.Info().Str("checksum", run.Checksum).Msg("Identical report already exported, skipping")
			return nil
		}
	}

	rows := exportRows(run)
	err = retry.Do(ctx, w.cfg.Retry, func() error {
		return w.sendBatch(ctx, rows)
	})
	if err != nil {
		return fmt.Errorf("failed to export report to clickhouse: %w", err)
	}

	log.Info().
		Str("table", w.cfg.Table).
		Str("run_id", run.RunID.String()).
		Int("rows", len(rows)).
		Msg("Report exported to ClickHouse")

	return nil
}

// sendBatch prepares, fills and sends one batch
func (w *ClickHouseWriter) sendBatch(ctx context.Context, rows []exportRow) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.cfg.Table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(
			r.RunID,
			r.CreatedAt,
			r.Kind,
			r.GroupField,
			r.Group,
			r.Total,
			r.AvgResponseTime,
			r.Checksum,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// checksumExists checks if a report with the given checksum was already exported
func (w *ClickHouseWriter) checksumExists(ctx context.Context, checksum string) (bool, error) {
	var count uint64
	row := w.conn.QueryRow(ctx, fmt.Sprintf("SELECT count() FROM %s WHERE checksum = ?", w.cfg.Table), checksum)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check checksum: %w", err)
	}
	return count > 0, nil
}

// Close is a no-op; the connection belongs to the caller
func (w *ClickHouseWriter) Close() error {
	return nil
}

// exportRows flattens a run into table rows
func exportRows(run *domain.ReportRun) []exportRow {
	rows := make([]exportRow, 0, len(run.Rows))
	for _, r := range run.Rows {
		rows = append(rows, exportRow{
			RunID:           run.RunID.String(),
			CreatedAt:       run.CreatedAt,
			Kind:            string(run.Kind),
			GroupField:      run.GroupField,
			Group:           r.Group,
			Total:           uint64(r.Total),
			AvgResponseTime: r.AvgResponseTime,
			Checksum:        run.Checksum,
		})
	}
	return rows
}

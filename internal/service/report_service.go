package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/access-log-report/internal/accesslog"
	"github.com/SteelMorgan/access-log-report/internal/cli"
	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/history"
	"github.com/SteelMorgan/access-log-report/internal/observability"
	"github.com/SteelMorgan/access-log-report/internal/report"
	"github.com/SteelMorgan/access-log-report/internal/writer"
)

const tracerName = "access-log-report/service"

const (
	chartWidth  = 60
	chartHeight = 10
)

// NoRecordsMessage is printed when no line produced a valid record
const NoRecordsMessage = "No valid records in logs."

// ErrNoRecords is returned by Run when the inputs hold no valid record
var ErrNoRecords = errors.New("no valid records in logs")

// Dependencies are the optional collaborators of ReportService
type Dependencies struct {
	// Exporters run after the CSV report is saved, e.g. the ClickHouse writer.
	// Their failures are logged and do not fail the run.
	Exporters []writer.ReportWriter

	// History records finished runs. Defaults to history.NopStore.
	History history.Store

	// Logger receives reader diagnostics. Defaults to the global logger.
	Logger *zerolog.Logger

	// Now defaults to time.Now
	Now func() time.Time
}

// ReportService builds one report per Run call
type ReportService struct {
	csv       *writer.CSVWriter
	exporters []writer.ReportWriter
	history   history.Store
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(deps Dependencies) *ReportService {
	s := &ReportService{
		csv:       writer.NewCSVWriter(),
		exporters: deps.Exporters,
		history:   deps.History,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.history == nil {
		s.history = history.NopStore{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run reads the logs named in opts, prints the report table to stdout and saves the CSV report.
// Returns ErrNoRecords when nothing valid was read; the CSV file is not written in that case.
func (s *ReportService) Run(ctx context.Context, opts *cli.Options, stdout io.Writer) (run *domain.ReportRun, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "report.run",
		attribute.String("kind", string(opts.Kind)),
		attribute.Int("files", len(opts.Files)),
	)
	defer func() { observability.EndSpan(span, err) }()

	spec, err := report.SpecFor(opts.Kind)
	if err != nil {
		return nil, err
	}

	reader := accesslog.NewReader(accesslog.Options{
		GroupField: spec.GroupField,
		Date:       opts.Date,
		Transform:  spec.Transform,
		Logger:     s.logger,
	})

	records, metrics, err := reader.ReadLogs(ctx, opts.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, NoRecordsMessage)
		return nil, ErrNoRecords
	}

	rows := s.build(ctx, records)

	run = &domain.ReportRun{
		RunID:      uuid.New(),
		CreatedAt:  s.now(),
		Kind:       opts.Kind,
		GroupField: spec.GroupField,
		Files:      opts.Files,
		ReportPath: opts.ReportPath,
		Rows:       rows,
		Metrics:    metrics,
		Checksum:   report.Checksum(rows),
	}
	if opts.Date != nil {
		run.DateFilter = opts.Date.String()
	}

	fmt.Fprintln(stdout, writer.RenderTable(spec.Label, rows))
	if opts.Chart {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, writer.RenderChart(rows, chartWidth, chartHeight))
	}

	if err := s.csv.WriteReport(ctx, run); err != nil {
		return nil, err
	}
	fmt.Fprintf(stdout, "\nReport saved to: %s\n", opts.ReportPath)

	for _, exporter := range s.exporters {
		if err := exporter.WriteReport(ctx, run); err != nil {
			log.Error().Err(err).Str("run_id", run.RunID.String()).Msg("Failed to export report")
		}
	}

	s.saveHistory(ctx, run)

	log.Info().
		Str("run_id", run.RunID.String()).
		Str("kind", string(run.Kind)).
		Int("groups", len(rows)).
		Uint64("records", metrics.RecordsParsed).
		Uint64("decode_errors", metrics.DecodeErrors).
		Uint64("parsing_time_ms", metrics.ParsingTimeMs).
		Msg("Report built")

	return run, nil
}

func (s *ReportService) build(ctx context.Context, records []domain.RawRecord) []domain.ReportRow {
	_, span := observability.StartSpan(ctx, tracerName, "report.build", attribute.Int("records", len(records)))
	rows := report.Build(records)
	span.SetAttributes(attribute.Int("groups", len(rows)))
	observability.EndSpan(span, nil)
	return rows
}

// saveHistory records the run; a failing history store only logs
func (s *ReportService) saveHistory(ctx context.Context, run *domain.ReportRun) {
	ctx, span := observability.StartSpan(ctx, tracerName, "history.save", attribute.String("run_id", run.RunID.String()))
	err := s.history.Save(ctx, run)
	observability.EndSpan(span, err)
	if err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID.String()).Msg("Failed to save run history")
	}
}

// Close releases the exporters and the history store
func (s *ReportService) Close() error {
	var errs []error
	for _, exporter := range s.exporters {
		if err := exporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.history.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

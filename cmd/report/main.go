package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/access-log-report/internal/cli"
	"github.com/SteelMorgan/access-log-report/internal/clickhouse"
	"github.com/SteelMorgan/access-log-report/internal/config"
	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/history"
	"github.com/SteelMorgan/access-log-report/internal/observability"
	"github.com/SteelMorgan/access-log-report/internal/service"
	"github.com/SteelMorgan/access-log-report/internal/writer"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK          = 0
	exitNoRecords   = 1
	exitConfigError = 2
	exitRuntime     = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	program := filepath.Base(os.Args[0])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitConfigError
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	opts, err := cli.Parse(args, cli.Defaults{
		ReportPath: cfg.Report.Path,
		Kind:       domain.ReportKind(cfg.Report.Kind),
		Chart:      cfg.Report.Chart,
	})
	if errors.Is(err, cli.ErrHelp) {
		cli.PrintUsage(stdout, program)
		return exitOK
	}
	if err != nil {
		cli.PrintUsage(stderr, program)
		fmt.Fprintf(stderr, "%s: error: %v\n", program, err)
		return exitConfigError
	}

	shutdown, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    observability.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Protocol:       cfg.Tracing.Protocol,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	store, err := history.Open(cfg.History.Backend, cfg.History.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open run history")
		return exitRuntime
	}

	var exporters []writer.ReportWriter
	if cfg.ClickHouse.Enabled && opts.Mode == cli.ModeReport {
		exporter, closeConn, err := newClickHouseExporter(ctx, cfg.ClickHouse)
		if err != nil {
			// The CSV report does not depend on ClickHouse
			log.Error().Err(err).Msg("ClickHouse export disabled")
		} else {
			defer closeConn()
			exporters = append(exporters, exporter)
		}
	}

	svc := service.NewReportService(service.Dependencies{
		Exporters: exporters,
		History:   store,
	})
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close report service")
		}
	}()

	switch opts.Mode {
	case cli.ModeHistory:
		return historyExitCode(svc.ListRuns(ctx, stdout), stderr)
	case cli.ModeShowRun:
		return historyExitCode(svc.ShowRun(ctx, opts.RunID, stdout), stderr)
	}

	if _, err := svc.Run(ctx, opts, stdout); err != nil {
		if errors.Is(err, service.ErrNoRecords) {
			return exitNoRecords
		}
		log.Error().Err(err).Msg("Report failed")
		return exitRuntime
	}

	return exitOK
}

func historyExitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, service.ErrHistoryDisabled):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	case errors.Is(err, service.ErrRunNotFound):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitNoRecords
	default:
		log.Error().Err(err).Msg("Failed to read run history")
		return exitRuntime
	}
}

func newClickHouseExporter(ctx context.Context, cfg config.ClickHouseConfig) (*writer.ClickHouseWriter, func(), error) {
	client, err := clickhouse.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeConn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ClickHouse connection")
		}
	}

	exporter, err := writer.NewClickHouseWriter(client.Conn(), writer.ClickHouseConfig{
		Table:               cfg.Table,
		Retry:               client.RetryConfig(),
		EnableDeduplication: cfg.Deduplicate,
	})
	if err != nil {
		closeConn()
		return nil, nil, err
	}

	if err := exporter.EnsureTable(ctx); err != nil {
		closeConn()
		return nil, nil, fmt.Errorf("failed to create export table: %w", err)
	}

	return exporter, closeConn, nil
}

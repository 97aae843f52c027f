package accesslog

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/observability"
)

const (
	tracerName = "access-log-report/accesslog"

	readBufferSize = 64 * 1024
)

// Options configures a Reader
type Options struct {
	GroupField string
	Date       *domain.Date
	Transform  domain.Transform

	// Logger receives per-line decode diagnostics. Defaults to the global logger.
	Logger *zerolog.Logger
}

// Reader reads access log files into raw records
type Reader struct {
	extractor Extractor
	logger    zerolog.Logger
}

// NewReader creates a new access log reader
func NewReader(opts Options) *Reader {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Reader{
		extractor: Extractor{
			GroupField: opts.GroupField,
			Date:       opts.Date,
			Transform:  opts.Transform,
		},
		logger: logger,
	}
}

// ReadLogs reads every path in order and concatenates the records.
// Any file that cannot be opened or read aborts the whole read; no partial result is returned.
func (r *Reader) ReadLogs(ctx context.Context, paths []string) ([]domain.RawRecord, domain.RunMetrics, error) {
	metrics := domain.RunMetrics{StartTime: time.Now()}
	var records []domain.RawRecord

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, metrics, fmt.Errorf("read cancelled: %w", err)
		}

		fileRecords, err := r.readFile(ctx, path, &metrics)
		if err != nil {
			return nil, metrics, err
		}
		records = append(records, fileRecords...)
		metrics.FilesProcessed++
	}

	metrics.Finish(time.Now())

	r.logger.Debug().
		Uint32("files_processed", metrics.FilesProcessed).
		Uint64("lines_read", metrics.LinesRead).
		Uint64("records_parsed", metrics.RecordsParsed).
		Uint64("decode_errors", metrics.DecodeErrors).
		Uint64("skipped_lines", metrics.SkippedLines).
		Msg("Access logs read")

	return records, metrics, nil
}

// readFile opens a single file, transparently decompressing .gz files
func (r *Reader) readFile(ctx context.Context, path string, metrics *domain.RunMetrics) (records []domain.RawRecord, err error) {
	_, span := observability.StartSpan(ctx, tracerName, "accesslog.read_file", attribute.String("file", path))
	defer func() {
		span.SetAttributes(attribute.Int("records", len(records)))
		observability.EndSpan(span, err)
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", path, err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	r.logger.Debug().Str("file", path).Msg("Reading access log")

	return r.scan(path, reader, metrics)
}

// scan applies the extractor to every line of src.
// Lines have no length limit; only I/O errors abort the scan.
func (r *Reader) scan(name string, src io.Reader, metrics *domain.RunMetrics) ([]domain.RawRecord, error) {
	br := bufio.NewReaderSize(src, readBufferSize)

	var records []domain.RawRecord
	lineNum := 0
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("failed to read log file %s at line %d: %w", name, lineNum+1, readErr)
		}
		if line == "" && readErr == io.EOF {
			break
		}

		lineNum++
		metrics.LinesRead++

		record, outcome, err := r.extractor.Extract(line)
		switch outcome {
		case OutcomeRecord:
			records = append(records, record)
			metrics.RecordsParsed++
		case OutcomeBlank:
			metrics.BlankLines++
		case OutcomeSkipped:
			metrics.SkippedLines++
		case OutcomeDecodeError:
			metrics.DecodeErrors++
			r.logger.Warn().
				Err(err).
				Str("file", name).
				Int("line", lineNum).
				Str("content", truncate(strings.TrimSpace(line), maxLoggedLine)).
				Msg("Failed to parse log line, skipping")
		}

		if readErr == io.EOF {
			break
		}
	}

	return records, nil
}

// maxLoggedLine caps the line content copied into a diagnostic
const maxLoggedLine = 4096

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

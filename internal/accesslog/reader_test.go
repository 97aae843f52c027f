package accesslog

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/SteelMorgan/access-log-report/internal/domain"
	"github.com/SteelMorgan/access-log-report/internal/normalizer"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func newTestReader(opts Options, buf *bytes.Buffer) *Reader {
	logger := zerolog.New(buf).Level(zerolog.WarnLevel)
	opts.Logger = &logger
	return NewReader(opts)
}

func TestReadLogs_MultipleFilesWithDateFilter(t *testing.T) {
	dir := t.TempDir()
	ex1 := filepath.Join(dir, "ex1.log")
	writeLines(t, ex1, []string{
		`{"@timestamp":"2025-06-22T10:00:00+00:00","url":"/a","response_time":0.1}`,
		``,
		`{not json}`,
		`{"@timestamp":"2025-06-22T11:00:00+00:00","url":"/b","response_time":"0.2"}`,
		`{"@timestamp":"2025-06-23T00:00:00+00:00","url":"/a","response_time":0.3}`,
	})
	ex2 := filepath.Join(dir, "ex2.log")
	writeLines(t, ex2, []string{
		`{"@timestamp":"2025-06-22T12:00:00+00:00","http_user_agent":"UA-X","response_time":1.0}`,
		`{"@timestamp":"2025-06-23T12:00:00+00:00","http_user_agent":"UA-Y","response_time":2.0}`,
	})

	date := domain.Date{Year: 2025, Month: 6, Day: 22}
	var logs bytes.Buffer

	urlReader := newTestReader(Options{GroupField: domain.FieldURL, Date: &date}, &logs)
	records, metrics, err := urlReader.ReadLogs(context.Background(), []string{ex1, ex2})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}

	want := []domain.RawRecord{
		{Group: "/a", ResponseTime: 0.1},
		{Group: "/b", ResponseTime: 0.2},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadLogs(url) = %+v, want %+v", records, want)
	}

	if metrics.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", metrics.FilesProcessed)
	}
	if metrics.LinesRead != 7 {
		t.Errorf("LinesRead = %d, want 7", metrics.LinesRead)
	}
	if metrics.BlankLines != 1 || metrics.DecodeErrors != 1 {
		t.Errorf("BlankLines = %d, DecodeErrors = %d, want 1 and 1", metrics.BlankLines, metrics.DecodeErrors)
	}
	if metrics.SkippedLines != 3 || metrics.RecordsParsed != 2 {
		t.Errorf("SkippedLines = %d, RecordsParsed = %d, want 3 and 2", metrics.SkippedLines, metrics.RecordsParsed)
	}

	uaReader := newTestReader(Options{GroupField: domain.FieldUserAgent, Date: &date}, &logs)
	records, _, err = uaReader.ReadLogs(context.Background(), []string{ex1, ex2})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}
	want = []domain.RawRecord{{Group: "UA-X", ResponseTime: 1.0}}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadLogs(useragent) = %+v, want %+v", records, want)
	}
}

func TestReadLogs_SkipsInvalidRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.log")
	writeLines(t, path, []string{
		`{"@timestamp":"2025-06-22T10:00:00+00:00","url":"/ok","response_time":0.1}`,
		`{"@timestamp":"2025-06-22T10:00:00+00:00","url":"/no_time"}`,
		`{"@timestamp":"2025-06-22T10:00:00+00:00","response_time":0.2}`,
		`{"@timestamp":"2025-06-22T10:00:00+00:00","url":"/bad","response_time":"xx"}`,
	})

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	records, _, err := reader.ReadLogs(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}

	want := []domain.RawRecord{{Group: "/ok", ResponseTime: 0.1}}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadLogs() = %+v, want %+v", records, want)
	}
	if logs.Len() != 0 {
		t.Errorf("semantic skips must not log diagnostics, got %q", logs.String())
	}
}

func TestReadLogs_DecodeErrorDiagnostic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	writeLines(t, path, []string{`{not json}`})

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	records, metrics, err := reader.ReadLogs(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %+v", records)
	}
	if metrics.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", metrics.DecodeErrors)
	}

	out := logs.String()
	for _, want := range []string{"{not json}", path, `"line":1`, "invalid JSON"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostic %q does not contain %q", out, want)
		}
	}
}

func TestReadLogs_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	writeLines(t, first, []string{
		`{"url":"/3","response_time":3}`,
		`{"url":"/1","response_time":1}`,
	})
	writeLines(t, second, []string{
		`{"url":"/2","response_time":2}`,
		`{"url":"/1","response_time":4}`,
	})

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)

	records, _, err := reader.ReadLogs(context.Background(), []string{second, first})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}
	want := []domain.RawRecord{
		{Group: "/2", ResponseTime: 2},
		{Group: "/1", ResponseTime: 4},
		{Group: "/3", ResponseTime: 3},
		{Group: "/1", ResponseTime: 1},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadLogs() = %+v, want %+v", records, want)
	}
}

func TestReadLogs_MissingFileAbortsWholeRead(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")
	writeLines(t, good, []string{`{"url":"/a","response_time":1}`})

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	records, _, err := reader.ReadLogs(context.Background(), []string{good, filepath.Join(dir, "missing.log")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if records != nil {
		t.Errorf("expected no partial records, got %+v", records)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestReadLogs_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log.gz")

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, _ = gz.Write([]byte(`{"http_user_agent":"Mozilla/5.0 Firefox/121.0","response_time":0.4}` + "\n" +
		`{"http_user_agent":"curl/8.0","response_time":"1.5"}` + "\n"))
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, compressed.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldUserAgent, Transform: normalizer.DetectBrowser}, &logs)
	records, _, err := reader.ReadLogs(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}
	want := []domain.RawRecord{
		{Group: "Firefox", ResponseTime: 0.4},
		{Group: "Other", ResponseTime: 1.5},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("ReadLogs() = %+v, want %+v", records, want)
	}
}

func TestReadLogs_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	writeLines(t, path, []string{`{"url":"/a","response_time":1}`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	if _, _, err := reader.ReadLogs(ctx, []string{path}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestReadLogs_VeryLongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	padding := strings.Repeat("x", 17<<20)
	writeLines(t, path, []string{
		`{"url":"/a","response_time":0.1}`,
		`{"url":"/long","response_time":0.2,"body":"` + padding + `"}`,
		`{"url":"/broken` + padding,
		`{"url":"/b","response_time":0.3}`,
	})

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	records, metrics, err := reader.ReadLogs(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}

	want := []domain.RawRecord{
		{Group: "/a", ResponseTime: 0.1},
		{Group: "/long", ResponseTime: 0.2},
		{Group: "/b", ResponseTime: 0.3},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %+v, want %+v", records, want)
	}
	if metrics.LinesRead != 4 || metrics.DecodeErrors != 1 {
		t.Errorf("LinesRead = %d, DecodeErrors = %d, want 4 and 1", metrics.LinesRead, metrics.DecodeErrors)
	}
	if logs.Len() > 64*1024 {
		t.Errorf("diagnostic for a long line is %d bytes, want it truncated", logs.Len())
	}
}

func TestReadLogs_LastLineWithoutNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	content := `{"url":"/a","response_time":1}` + "\r\n" + `{"url":"/b","response_time":2}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}

	var logs bytes.Buffer
	reader := newTestReader(Options{GroupField: domain.FieldURL}, &logs)
	records, metrics, err := reader.ReadLogs(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ReadLogs() error: %v", err)
	}
	if len(records) != 2 || records[1].Group != "/b" {
		t.Errorf("records = %+v, want /a and /b", records)
	}
	if metrics.LinesRead != 2 {
		t.Errorf("LinesRead = %d, want 2", metrics.LinesRead)
	}
}

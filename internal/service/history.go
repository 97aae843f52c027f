package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/SteelMorgan/access-log-report/internal/history"
	"github.com/SteelMorgan/access-log-report/internal/report"
	"github.com/SteelMorgan/access-log-report/internal/writer"
)

// ErrHistoryDisabled is returned when history is read while HISTORY_BACKEND is none
var ErrHistoryDisabled = errors.New("run history is disabled (set HISTORY_BACKEND to bolt or sqlite)")

// ErrRunNotFound is returned by ShowRun for an unknown run ID
var ErrRunNotFound = errors.New("run not found in history")

// NoRunsMessage is printed when the history is enabled but empty
const NoRunsMessage = "No recorded runs."

func (s *ReportService) historyEnabled() bool {
	_, disabled := s.history.(history.NopStore)
	return !disabled
}

// ListRuns prints the recorded runs, newest first
func (s *ReportService) ListRuns(ctx context.Context, stdout io.Writer) error {
	if !s.historyEnabled() {
		return ErrHistoryDisabled
	}

	runs, err := s.history.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, NoRunsMessage)
		return nil
	}

	fmt.Fprintln(stdout, writer.RenderRunList(runs))
	return nil
}

// ShowRun prints the report table of one recorded run
func (s *ReportService) ShowRun(ctx context.Context, runID string, stdout io.Writer) error {
	if !s.historyEnabled() {
		return ErrHistoryDisabled
	}

	run, err := s.history.Get(ctx, runID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return err
	}

	label := run.GroupField
	if spec, err := report.SpecFor(run.Kind); err == nil {
		label = spec.Label
	}

	fmt.Fprintf(stdout, "Run %s, %s report created %s\n",
		run.RunID, run.Kind, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if run.DateFilter != "" {
		fmt.Fprintf(stdout, "Date filter: %s\n", run.DateFilter)
	}
	fmt.Fprintln(stdout, writer.RenderTable(label, run.Rows))
	fmt.Fprintf(stdout, "\nReport was saved to: %s\n", run.ReportPath)
	return nil
}

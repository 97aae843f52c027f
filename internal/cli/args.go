package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

const (
	flagFile       = "--file"
	flagReport     = "--report"
	flagDate       = "--date"
	flagReportKind = "--report-kind"
	flagChart      = "--chart"
	flagHistory    = "--history"
	flagShowRun    = "--show-run"
)

// Mode selects what a command line asks for
type Mode int

const (
	ModeReport  Mode = iota // build a report from --file inputs
	ModeHistory             // list recorded runs
	ModeShowRun             // print one recorded run
)

// Defaults are the values used for flags that are not given.
// They normally come from config.
type Defaults struct {
	ReportPath string
	Kind       domain.ReportKind
	Chart      bool
}

// Options is the parsed command line
type Options struct {
	Mode       Mode
	RunID      string // ModeShowRun only
	Files      []string
	ReportPath string
	Date       *domain.Date // nil when no date filter
	Kind       domain.ReportKind
	Chart      bool
}

// Parse parses the arguments that follow the program name.
// --file takes one or more paths and may be repeated; paths accumulate.
// Each path must name an existing regular file.
func Parse(args []string, defaults Defaults) (*Options, error) {
	opts := &Options{
		ReportPath: defaults.ReportPath,
		Kind:       defaults.Kind,
		Chart:      defaults.Chart,
	}
	if opts.Kind == "" {
		opts.Kind = domain.KindURL
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-h" || arg == "--help" {
			return nil, ErrHelp
		}
		if !isFlag(arg) {
			return nil, configError("", "unrecognized arguments: %s", arg)
		}

		name, inline, hasInline := strings.Cut(arg, "=")

		// single value flags
		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if i+1 >= len(args) || isFlag(args[i+1]) {
				return "", configError(name, "expected one argument")
			}
			i++
			return args[i], nil
		}

		switch name {
		case flagFile:
			var paths []string
			if hasInline {
				paths = append(paths, inline)
			}
			for i+1 < len(args) && !isFlag(args[i+1]) {
				i++
				paths = append(paths, args[i])
			}
			if len(paths) == 0 {
				return nil, configError(name, "expected at least one argument")
			}
			for _, p := range paths {
				if err := existingFile(p); err != nil {
					return nil, err
				}
			}
			opts.Files = append(opts.Files, paths...)

		case flagReport:
			v, err := value()
			if err != nil {
				return nil, err
			}
			opts.ReportPath = v

		case flagDate:
			v, err := value()
			if err != nil {
				return nil, err
			}
			d, err := domain.ParseDate(v)
			if err != nil {
				return nil, configError(name, "invalid --date format: '%s'. Expected YYYY-MM-DD, e.g. 2025-06-22", v)
			}
			opts.Date = &d

		case flagReportKind:
			v, err := value()
			if err != nil {
				return nil, err
			}
			kind, err := domain.ParseReportKind(v)
			if err != nil {
				return nil, configError(name, "invalid choice: '%s' (choose from 'url', 'useragent', 'browser')", v)
			}
			opts.Kind = kind

		case flagChart:
			if hasInline {
				return nil, configError(name, "ignored explicit argument '%s'", inline)
			}
			opts.Chart = true

		case flagHistory:
			if hasInline {
				return nil, configError(name, "ignored explicit argument '%s'", inline)
			}
			opts.Mode = ModeHistory

		case flagShowRun:
			v, err := value()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(v) == "" {
				return nil, configError(name, "run id must not be empty")
			}
			opts.Mode = ModeShowRun
			opts.RunID = strings.TrimSpace(v)

		default:
			return nil, configError("", "unrecognized arguments: %s", arg)
		}
	}

	if opts.Mode != ModeReport {
		if len(opts.Files) > 0 {
			return nil, configError("", "--history and --show-run cannot be combined with --file")
		}
		return opts, nil
	}

	if len(opts.Files) == 0 {
		return nil, configError("", "the following arguments are required: --file")
	}
	if opts.ReportPath == "" {
		return nil, configError(flagReport, "report path must not be empty")
	}

	return opts, nil
}

// isFlag reports whether arg looks like an option rather than a value.
// A lone "-" is a value.
func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

func existingFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return configError(flagFile, "file '%s' not found", path)
	}
	return nil
}

// PrintUsage writes the command help to w
func PrintUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "usage: %s --file FILE [FILE ...] [--report REPORT] [--date YYYY-MM-DD]\n", program)
	fmt.Fprintf(w, "       %*s [--report-kind {url,useragent,browser}] [--chart]\n", len(program), "")
	fmt.Fprintf(w, "       %s --history\n", program)
	fmt.Fprintf(w, "       %s --show-run RUN_ID\n\n", program)
	fmt.Fprintln(w, "Build an aggregate report from JSON access logs (one JSON object per line).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "options:")
	fmt.Fprintln(w, "  -h, --help            show this help message and exit")
	fmt.Fprintln(w, "  --file FILE [FILE ...]")
	fmt.Fprintln(w, "                        log files to read, .gz files are decompressed")
	fmt.Fprintln(w, "  --report REPORT       CSV report path (default: REPORT_PATH or report.csv)")
	fmt.Fprintln(w, "  --date YYYY-MM-DD     only count records whose @timestamp falls on this day")
	fmt.Fprintln(w, "  --report-kind {url,useragent,browser}")
	fmt.Fprintln(w, "                        grouping dimension (default: REPORT_KIND or url)")
	fmt.Fprintln(w, "  --chart               plot average response time under the table")
	fmt.Fprintln(w, "  --history             list recorded runs, newest first (needs HISTORY_BACKEND)")
	fmt.Fprintln(w, "  --show-run RUN_ID     print the report of a recorded run")
}

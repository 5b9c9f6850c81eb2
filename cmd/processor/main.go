package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gridpulse/internal/chart"
	"gridpulse/internal/config"
	"gridpulse/internal/dataprocessing"
	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/exporter"
	"gridpulse/internal/files"
	"gridpulse/internal/infrastructure"
	"gridpulse/internal/services"
	"gridpulse/internal/timerange"
	"gridpulse/internal/validation"
	"gridpulse/pkg/contracts/domain"
)

// options are the parsed command line flags
type options struct {
	input       string
	granularity string
	start       string
	end         string
	metrics     []string
	theme       string
	chartOut    string
	export      string
	exportName  string
	jsonOut     bool
	logLevel    string
}

// summary is the -json rendition of a processed file
type summary struct {
	Source     string                      `json:"source"`
	Meta       domain.ParseMeta            `json:"meta"`
	Validation validation.Report           `json:"validation"`
	Forecast   validation.Report           `json:"forecast_validation"`
	Window     *domain.TimeWindow          `json:"window,omitempty"`
	Records    int                         `json:"records"`
	Stats      dataprocessing.DatasetStats `json:"stats"`
	Exported   string                      `json:"exported,omitempty"`
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config not loaded, using defaults: %v\n", err)
		cfg = config.Default()
	}
	cfg.Logging.Output = "console"
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, _, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, stdout, logger); err != nil {
		logger.Error("Processing failed",
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var metrics string
	fs.StringVar(&opts.input, "in", "", "report file, directory (newest report wins) or http(s) URL; defaults to the configured source")
	fs.StringVar(&opts.granularity, "granularity", "", "window granularity: day, month, quarter, year or custom")
	fs.StringVar(&opts.start, "start", "", "window start date (YYYY-MM-DD)")
	fs.StringVar(&opts.end, "end", "", "window end date for custom windows (YYYY-MM-DD)")
	fs.StringVar(&metrics, "metrics", "", "comma-separated metrics to chart (defaults to the standard selection)")
	fs.StringVar(&opts.theme, "theme", "light", "chart theme: light or dark")
	fs.StringVar(&opts.chartOut, "chart", "", "write the chart model as JSON to this file, or - for stdout")
	fs.StringVar(&opts.export, "export", "", "export the (windowed) records: csv or xlsx")
	fs.StringVar(&opts.exportName, "out", "", "export file name; relative names go under the exports directory")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the summary as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		if opts.input != "" {
			return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
		opts.input = fs.Arg(0)
	}

	for _, m := range strings.Split(metrics, ",") {
		if m = strings.TrimSpace(m); m != "" {
			opts.metrics = append(opts.metrics, m)
		}
	}

	if _, ok := chart.ParseTheme(opts.theme); !ok {
		return nil, fmt.Errorf("invalid theme %q", opts.theme)
	}
	if opts.export != "" {
		if _, err := services.ParseExportFormat(opts.export); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// window derives the requested window; nil means the whole file.
func (o *options) window() (*domain.TimeWindow, error) {
	if o.granularity == "" && o.start == "" && o.end == "" {
		return nil, nil
	}

	g := domain.GranularityDay
	if o.granularity != "" {
		parsed, err := domain.ParseGranularity(o.granularity)
		if err != nil {
			return nil, apperrors.NewAppValidationError(err.Error())
		}
		g = parsed
	} else if o.end != "" {
		g = domain.GranularityCustom
	}

	if o.start == "" {
		w, err := timerange.DefaultWindow(g)
		return &w, err
	}

	start, err := timerange.ParseDate(o.start)
	if err != nil {
		return nil, err
	}
	end := start
	if o.end != "" {
		if end, err = timerange.ParseDate(o.end); err != nil {
			return nil, err
		}
	}
	w, err := timerange.DeriveWindow(g, start, end)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer, logger *slog.Logger) error {
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}

	input := opts.input
	if input == "" {
		input = cfg.Source.DefaultLocation
		if input != "" && !services.IsRemote(input) && !filepath.IsAbs(input) {
			input = filepath.Join(paths.ExecutableDir, input)
		}
	}
	if input == "" {
		return apperrors.NewConfigError("no input file given and no default source configured", nil)
	}
	if !services.IsRemote(input) {
		if st, err := os.Stat(input); err == nil && st.IsDir() {
			latest, err := files.NewDiscovery(paths.ExecutableDir).LatestReport(input)
			if err != nil {
				return apperrors.NewAppValidationError(err.Error())
			}
			logger.Info("Using latest report in directory",
				slog.String("directory", input),
				slog.String("file", latest.Name))
			input = latest.Path
		}
	}

	window, err := opts.window()
	if err != nil {
		return err
	}

	pipeline, err := services.NewPipeline(cfg.Pipeline, nil, nil, logger)
	if err != nil {
		return err
	}
	fetcher := services.NewSourceFetcher(nil, cfg.Source.MaxUploadBytes, logger)

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Source.FetchTimeout)
	defer cancel()

	started := time.Now()
	raw, err := fetcher.Fetch(fetchCtx, input)
	if err != nil {
		return err
	}
	res, err := pipeline.Ingest(ctx, raw)
	if err != nil {
		return err
	}
	logger.Info("File processed",
		slog.String("source", input),
		slog.Int("valid_rows", res.Dataset.Meta.ValidRows),
		slog.Duration("elapsed", time.Since(started)))

	ds := res.Dataset
	if window != nil {
		ds = timerange.Filter(res.Dataset, *window)
	}

	out := summary{
		Source:     input,
		Meta:       res.Dataset.Meta,
		Validation: res.Report,
		Forecast:   res.Forecast,
		Window:     window,
		Records:    ds.Len(),
		Stats:      dataprocessing.CalculateStats(ds),
	}

	if opts.chartOut != "" {
		if err := writeChart(ctx, pipeline, res.Dataset, window, opts, stdout); err != nil {
			return err
		}
	}

	if opts.export != "" {
		out.Exported, err = export(paths, ds, opts, logger)
		if err != nil {
			return err
		}
	}

	if opts.chartOut == "-" {
		return nil
	}
	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printSummary(stdout, out)
}

func writeChart(ctx context.Context, pipeline *services.Pipeline, ds *domain.Dataset, window *domain.TimeWindow, opts *options, stdout io.Writer) error {
	w := window
	if w == nil {
		def, err := timerange.DefaultWindow(domain.GranularityDay)
		if err != nil {
			return err
		}
		w = &def
	}

	metrics := opts.metrics
	if len(metrics) == 0 {
		metrics = domain.DefaultSelection()
	}
	theme, _ := chart.ParseTheme(opts.theme)

	view := pipeline.View(ctx, ds, services.ViewRequest{Window: *w, Metrics: metrics, Theme: theme})
	payload := struct {
		*services.View
		Subtitle string           `json:"subtitle"`
		Style    chart.ThemeStyle `json:"style"`
	}{view, chart.Subtitle(view.Chart), chart.Style(theme)}

	var dst io.Writer = stdout
	if opts.chartOut != "-" {
		f, err := os.Create(opts.chartOut)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		defer f.Close()
		dst = f
	}

	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

func export(paths *config.Paths, ds *domain.Dataset, opts *options, logger *slog.Logger) (string, error) {
	format, err := services.ParseExportFormat(opts.export)
	if err != nil {
		return "", err
	}

	name := opts.exportName
	if name == "" {
		name = paths.GetTimestampedExportPath("power", string(format), time.Now())
	}

	exp := exporter.NewDatasetExporter(paths, logger)
	if format == services.ExportXLSX {
		return exp.ExportWorkbook(name, ds)
	}
	return exp.ExportCSV(name, ds)
}

func printSummary(w io.Writer, s summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Source:\t%s\n", s.Source)
	fmt.Fprintf(tw, "Encoding:\t%s\n", s.Meta.Encoding)
	fmt.Fprintf(tw, "Rows:\t%d total, %d valid, %d skipped\n", s.Meta.TotalRows, s.Meta.ValidRows, s.Meta.SkippedRows)
	if s.Meta.HasForecast {
		fmt.Fprintf(tw, "Forecast columns:\t%s\n", strings.Join(s.Meta.ForecastColumns, ", "))
	}
	fmt.Fprintf(tw, "Anomalies:\t%d (forecast %d)\n", s.Validation.Total, s.Forecast.Total)
	if s.Window != nil {
		fmt.Fprintf(tw, "Window:\t%s\n", s.Window)
	}
	fmt.Fprintf(tw, "Records:\t%d\n", s.Records)
	if s.Stats.DateRange != "" {
		fmt.Fprintf(tw, "Date range:\t%s\n", s.Stats.DateRange)
	}
	if s.Exported != "" {
		fmt.Fprintf(tw, "Exported:\t%s\n", s.Exported)
	}

	if len(s.Stats.Metrics) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Metric\tAverage\tMaximum\tMinimum\tTotal")
		for _, m := range s.Stats.Metrics {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n", m.Metric, m.Average, m.Maximum, m.Minimum, m.Total)
		}
	}
	return tw.Flush()
}

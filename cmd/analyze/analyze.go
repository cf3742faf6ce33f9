package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/kyleponte/signaltiming/internal/app"
	"github.com/kyleponte/signaltiming/internal/appconf"
	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/ingest"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/metrics"
	"github.com/kyleponte/signaltiming/internal/report"
	"github.com/kyleponte/signaltiming/internal/signal"
	"github.com/kyleponte/signaltiming/reportdb"
)

var (
	errUsage     = errors.New("usage")
	errAllFailed = errors.New("analysis failed for every intersection")
)

type options struct {
	configPath    string
	volumesPath   string
	outDir        string
	gzip          bool
	dataPath      string
	intersections string
	verbose       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "JSON config file with analysis settings, baselines and metadata")
	fs.StringVar(&opts.volumesPath, "volumes", "", "traffic count CSV file (.csv or .csv.gz)")
	fs.StringVar(&opts.outDir, "out", "", "directory for summaries.csv, delays.csv and plans.json")
	fs.BoolVar(&opts.gzip, "gzip", false, "gzip the report files")
	fs.StringVar(&opts.dataPath, "data-path", "", "report database to store the run in")
	fs.StringVar(&opts.intersections, "intersections", "", "comma separated intersection ids to analyze (default all)")
	fs.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}
	return opts, nil
}

func loadConfig(opts options) (*appconf.JSONConfig, error) {
	cfg := appconf.DefaultJSONConfig()
	cfg.DataPath = ""
	if opts.configPath != "" {
		loaded, err := appconf.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if opts.volumesPath != "" {
		cfg.VolumesPath = opts.volumesPath
	}
	if opts.dataPath != "" {
		cfg.DataPath = opts.dataPath
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	return &cfg, nil
}

// run is the whole command. Per-intersection failures are reported in the
// output; the run itself fails only when nothing could be analyzed.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.VolumesPath == "" {
		fmt.Fprintln(stderr, "analyze: -volumes is required")
		return errUsage
	}
	if opts.outDir == "" && cfg.DataPath == "" {
		fmt.Fprintln(stderr, "analyze: set -out and/or -data-path")
		return errUsage
	}

	logger := logging.NewLogger(stderr, cfg.Verbose, false).With(slog.String("component", "analyze"))
	m := metrics.NewWithLogger(logger)

	analysis, err := cfg.ToAnalysisConfig()
	if err != nil {
		return err
	}
	catalogData := cfg.ToCatalogConfigData()

	res, err := ingest.LoadFile(cfg.VolumesPath, ingest.Config{
		DefaultApproach: catalogData.DefaultApproach,
		Location:        catalogData.Location,
	}, catalogData.Metadata)
	if err != nil {
		return fmt.Errorf("failed to load volumes: %w", err)
	}
	m.ObserveIngest(len(res.Rejected), len(res.Intersections))
	for _, rej := range res.Rejected {
		logger.Warn("row rejected", slog.Int("line", rej.Line), slog.String("reason", rej.Error()))
	}
	logging.LogOperation(logger, "volumes_loaded",
		slog.String("path", cfg.VolumesPath),
		slog.Int("rows", res.Rows),
		slog.Int("accepted", res.Accepted),
		slog.Int("rejected", len(res.Rejected)),
		slog.Int("zero_counts", res.ZeroCounts),
		slog.Int("intersections", len(res.Intersections)))

	data, err := selectIntersections(res.Intersections, opts.intersections)
	if err != nil {
		return err
	}

	runner, err := app.NewRunner(analysis, logger, m)
	if err != nil {
		return err
	}
	outcomes := runner.Run(ctx, data)
	if err := ctx.Err(); err != nil {
		return err
	}
	reportRun := report.NewRun(clock.RealClock{}, outcomes)

	if opts.outDir != "" {
		paths, err := report.Save(opts.outDir, reportRun, report.Options{Gzip: opts.gzip})
		if err != nil {
			return err
		}
		logging.LogOperation(logger, "reports_written", slog.Any("paths", paths))
	}

	if cfg.DataPath != "" {
		if err := store(ctx, cfg, data, reportRun); err != nil {
			return err
		}
		logging.LogOperation(logger, "run_stored",
			slog.String("run_id", reportRun.ID.String()),
			slog.String("data_path", cfg.DataPath))
	}

	if err := printSummary(stdout, reportRun); err != nil {
		return err
	}
	if reportRun.Failed() == len(reportRun.Outcomes) {
		return errAllFailed
	}
	return nil
}

func selectIntersections(all []*signal.IntersectionData, filter string) ([]*signal.IntersectionData, error) {
	if strings.TrimSpace(filter) == "" {
		if len(all) == 0 {
			return nil, errors.New("no intersections in the volumes file")
		}
		return all, nil
	}
	ids := lo.Uniq(lo.Compact(lo.Map(strings.Split(filter, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
	known := lo.SliceToMap(all, func(d *signal.IntersectionData) (string, *signal.IntersectionData) {
		return d.ID(), d
	})
	if missing := lo.Filter(ids, func(id string, _ int) bool { _, ok := known[id]; return !ok }); len(missing) > 0 {
		return nil, fmt.Errorf("unknown intersections: %s", strings.Join(missing, ", "))
	}
	return lo.Map(ids, func(id string, _ int) *signal.IntersectionData { return known[id] }), nil
}

func store(ctx context.Context, cfg *appconf.JSONConfig, data []*signal.IntersectionData, run *report.Run) error {
	env, _ := appconf.ParseEnvironment(cfg.Env)
	client, err := reportdb.NewClient(reportdb.NewConfig(cfg.DataPath, env, cfg.Verbose))
	if err != nil {
		return fmt.Errorf("failed to open report database: %w", err)
	}
	defer logging.SafeCloseWithLogging(client, slog.Default().With(slog.String("component", "analyze")), "report_database")

	for _, d := range data {
		if err := client.SaveIntersection(ctx, d); err != nil {
			return err
		}
	}
	return client.SaveRun(ctx, run)
}

func printSummary(w io.Writer, run *report.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\n", run.ID)
	fmt.Fprintln(tw, "INTERSECTION\tBASELINE\tALTERNATIVE\tIMPROVEMENT\tSTATUS")
	for _, o := range run.Outcomes {
		if !o.OK() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%s\n", o.IntersectionID, batch.Classify(o.Err))
			continue
		}
		s := o.Comparison.Summary
		fmt.Fprintf(tw, "%s\t%.2fs\t%.2fs\t%.1f%%\tok\n",
			o.IntersectionID, s.BaselineMeanDelay, s.AlternativeMeanDelay, s.ImprovementPercent)
	}
	fmt.Fprintf(tw, "%d analyzed, %d failed\n", len(run.Outcomes)-run.Failed(), run.Failed())
	return tw.Flush()
}

// Command compression runs the temporal-compression analysis over one CSV
// trial table per encoding-speed condition and a route reference table.
//
//	compression -routes routes.csv \
//	  -condition slow=slow.csv -condition medium=medium.csv -condition fast=fast.csv \
//	  -out trials.csv -json result.json -db runs.db -plots plots/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/banshee-data/temporal-compression/internal/config"
	"github.com/banshee-data/temporal-compression/internal/db"
	"github.com/banshee-data/temporal-compression/internal/fsutil"
	"github.com/banshee-data/temporal-compression/internal/monitoring"
	"github.com/banshee-data/temporal-compression/internal/pipeline"
	"github.com/banshee-data/temporal-compression/internal/report"
	"github.com/banshee-data/temporal-compression/internal/tableio"
	"github.com/banshee-data/temporal-compression/internal/trial"
	"github.com/banshee-data/temporal-compression/internal/version"
)

// conditionFlags collects repeated -condition name=path flags.
type conditionFlags map[trial.Condition]string

func (c conditionFlags) String() string {
	parts := make([]string, 0, len(c))
	for _, name := range c.names() {
		parts = append(parts, fmt.Sprintf("%s=%s", name, c[name]))
	}
	return strings.Join(parts, ",")
}

func (c conditionFlags) Set(v string) error {
	name, path, ok := strings.Cut(v, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path, got %q", v)
	}
	cond := trial.Condition(strings.ToLower(name))
	if _, dup := c[cond]; dup {
		return fmt.Errorf("condition %q given more than once", cond)
	}
	c[cond] = path
	return nil
}

// names returns the conditions in reporting order.
func (c conditionFlags) names() []trial.Condition {
	out := make([]trial.Condition, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	trial.SortConditions(out)
	return out
}

type options struct {
	configPath string
	conditions conditionFlags
	routesPath string
	outPath    string
	jsonPath   string
	dbPath     string
	plotsDir   string
	quiet      bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{conditions: conditionFlags{}}
	flags := flag.NewFlagSet("compression", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&o.configPath, "config", "", "path to analysis config JSON (defaults when empty)")
	flags.Var(o.conditions, "condition", "condition table as name=path (repeatable)")
	flags.StringVar(&o.routesPath, "routes", "", "path to route reference CSV")
	flags.StringVar(&o.outPath, "out", "", "write the flat row-per-trial CSV here")
	flags.StringVar(&o.jsonPath, "json", "", "write the JSON result record here")
	flags.StringVar(&o.dbPath, "db", "", "save the run to this SQLite database")
	flags.StringVar(&o.plotsDir, "plots", "", "write diagnostic charts into this directory")
	flags.BoolVar(&o.quiet, "quiet", false, "suppress stage logging")
	flags.BoolVar(&o.version, "version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return o, nil
	}
	if o.routesPath == "" {
		return nil, errors.New("-routes is required")
	}
	if len(o.conditions) == 0 {
		return nil, errors.New("at least one -condition is required")
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, fsutil.OSFileSystem{}))
}

// run executes the command and returns the process exit code: 0 on
// success, 1 when the analysis or any condition failed, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer, fsys fsutil.FileSystem) int {
	logger := log.New(stderr, "", log.LstdFlags)
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "compression: %v\n", err)
		}
		return 2
	}
	if o.version {
		fmt.Fprintf(stdout, "compression %s\n", version.String())
		return 0
	}
	if o.quiet {
		monitoring.SetLogger(nil)
	} else {
		monitoring.SetLogger(logger.Printf)
	}

	cfg, err := loadConfig(o.configPath, logger)
	if err != nil {
		logger.Printf("load config: %v", err)
		return 1
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.Printf("config: %v", err)
		return 1
	}

	routes, err := tableio.ReadRoutesFile(fsys, o.routesPath)
	if err != nil {
		logger.Printf("read routes: %v", err)
		return 1
	}
	var tables []*trial.Table
	for _, c := range o.conditions.names() {
		t, err := tableio.ReadTrialsFile(fsys, o.conditions[c], c)
		if err != nil {
			logger.Printf("read %s: %v", c, err)
			return 1
		}
		tables = append(tables, t)
	}

	res, err := pipeline.NewRunner(opts).Run(routes, tables...)
	if err != nil {
		logger.Printf("analysis: %v", err)
		return 1
	}

	if err := writeOutputs(o, fsys, res); err != nil {
		logger.Printf("%v", err)
		return 1
	}
	printSummary(stdout, res)

	if !res.OK() {
		for _, c := range o.conditions.names() {
			if msg, failed := res.Failed[c]; failed {
				logger.Printf("condition %s failed: %s", c, msg)
			}
		}
		return 1
	}
	return 0
}

// loadConfig reads the -config file, or the defaults file when none was
// given. Without a defaults file the built-in defaults apply.
func loadConfig(path string, logger *log.Logger) (*config.AnalysisConfig, error) {
	if path != "" {
		return config.LoadAnalysisConfig(path)
	}
	cfg, found, err := config.LoadDefaultConfig()
	switch {
	case err == nil:
		logger.Printf("config: %s", found)
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("config: %s not found, using built-in defaults", config.DefaultConfigPath)
		return config.EmptyAnalysisConfig(), nil
	default:
		return nil, err
	}
}

func writeOutputs(o *options, fsys fsutil.FileSystem, res *pipeline.Result) error {
	if o.outPath != "" {
		if err := tableio.WriteFlatFile(fsys, o.outPath, res.Primary.Tables()...); err != nil {
			return fmt.Errorf("write flat table: %w", err)
		}
	}
	if o.jsonPath != "" {
		if err := tableio.WriteJSONFile(fsys, o.jsonPath, res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if o.plotsDir != "" {
		if _, err := report.WriteCharts(fsys, o.plotsDir, res); err != nil && !errors.Is(err, report.ErrNoData) {
			return fmt.Errorf("write charts: %w", err)
		}
	}
	if o.dbPath != "" {
		store, err := db.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		if err := store.SaveRun(res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "run %s\n", res.ID)
	for _, s := range res.Primary.Summaries {
		c := s.Compression
		fmt.Fprintf(w, "%-8s n=%-4d lost=%-3d faults=%-3d compression mean=%.4f std=%.4f 1/mean=%.4f\n",
			s.Condition, c.N, s.Lost, s.Faults, c.Mean, c.StdDev, c.InverseMean)
	}
	if cmp := res.Primary.Comparison; cmp != nil {
		fmt.Fprintf(w, "%s: statistic=%.4f p=%.4g\n", cmp.Omnibus.Test, cmp.Omnibus.Statistic, cmp.Omnibus.PValue)
		for _, pw := range cmp.Pairwise {
			fmt.Fprintf(w, "  %s vs %s: U=%.1f p=%.4g\n", pw.A, pw.B, pw.U, pw.PValue)
		}
	} else if res.Primary.Skipped != "" {
		fmt.Fprintf(w, "comparison skipped: %s\n", res.Primary.Skipped)
	}
}

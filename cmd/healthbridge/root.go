package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/infrastructure/config"
	"github.com/nerrad567/healthbridge/internal/infrastructure/logging"
)

// Default configuration file path, overridden by HEALTHBRIDGE_CONFIG or --config.
const defaultConfigPath = "configs/healthbridge.yaml"

// options holds flag values shared by the subcommands. Flags only override
// the loaded configuration when they were set explicitly.
type options struct {
	configPath   string
	verbose      bool
	progressFile string
	start        string
	end          string

	host    string
	port    int
	tz      string
	metrics string
	backend string
	dryRun  bool
	reset   bool
	poll    time.Duration
	listen  string
	jsonOut bool
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "healthbridge",
		Short: "Backfill Health Auto Export history into a time-series database",
		Long: `healthbridge imports historical health metrics from the Health Auto Export
query server on a phone into InfluxDB or VictoriaMetrics, one day at a time,
newest first. Progress is kept in a JSON file so interrupted imports resume.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $HEALTHBRIDGE_CONFIG or "+defaultConfigPath+")")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&opts.progressFile, "progress-file", "", "progress file path")
	pf.StringVar(&opts.start, "start", "", "first day to import (YYYY-MM-DD)")
	pf.StringVar(&opts.end, "end", "", "last day to import (YYYY-MM-DD, default today)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newDaemonCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newResetCmd(opts))

	return cmd
}

// addImportFlags registers the flags of commands that talk to the device.
func addImportFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "phone IP address or hostname")
	f.IntVar(&opts.port, "port", 0, "Health Auto Export query server port")
	f.StringVar(&opts.tz, "tz", "", "timezone offset for query windows, e.g. +0100 (default local)")
	f.StringVar(&opts.metrics, "metrics", "", "comma-separated metric names (default all)")
	f.StringVar(&opts.backend, "backend", "", "sink backend: influxdb or victoriametrics")
	f.BoolVar(&opts.dryRun, "dry-run", false, "query the phone but write nothing")
	f.BoolVar(&opts.reset, "reset", false, "discard progress before starting")
}

// resolvedConfigPath returns the config file location: flag, then environment,
// then the default.
func (o *options) resolvedConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv("HEALTHBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads the configuration file (a missing file yields defaults),
// applies environment overrides and then explicitly set flags. The result
// is not validated.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	set := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if set("progress-file") {
		cfg.Backfill.ProgressFile = opts.progressFile
	}
	if set("start") {
		cfg.Backfill.Start = opts.start
	}
	if set("end") {
		cfg.Backfill.End = opts.end
	}
	if set("host") {
		cfg.Device.Host = opts.host
	}
	if set("port") {
		cfg.Device.Port = opts.port
	}
	if set("tz") {
		cfg.Backfill.TZOffset = opts.tz
	}
	if set("metrics") {
		cfg.Device.Metrics = opts.metrics
	}
	if set("backend") {
		cfg.Sink.Backend = opts.backend
	}
	if set("dry-run") {
		cfg.Backfill.DryRun = opts.dryRun
	}
	if set("poll-interval") {
		cfg.Daemon.PollInterval = opts.poll
	}
	if set("listen") {
		cfg.Status.Listen = opts.listen
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// importRange resolves the configured range against today's date.
func importRange(cfg *config.Config, now time.Time) (backfill.Range, error) {
	start, err := cfg.StartDate()
	if err != nil {
		return backfill.Range{}, err
	}
	end, err := cfg.EndDate(now)
	if err != nil {
		return backfill.Range{}, err
	}
	return backfill.NewRange(start, end)
}

// newLogger creates the application logger from configuration.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(cfg.Logging, version)
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/daemon"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backfill pass and exit",
		Long: `Import every day of the range that is not yet complete, newest first,
then print a summary and exit. Failed days are left for the next run.

The pass stops early when the phone stops answering or on Ctrl+C; the
current window is finished first and progress is always saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, opts)
		},
	}
	addImportFlags(cmd, opts)
	return cmd
}

func runOnce(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Info("starting healthbridge", "version", version, "mode", "run")

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.reset {
		if err := a.store.Reset(); err != nil {
			return fmt.Errorf("resetting progress: %w", err)
		}
		log.Info("progress reset", "progress_file", cfg.Backfill.ProgressFile)
	}

	res, err := a.engine.RunPass(ctx)
	if err != nil {
		return err
	}
	if a.recorder != nil {
		reportNetworkLoss(ctx, a.recorder, res)
	}

	printSummary(cmd.OutOrStdout(), res)
	return nil
}

// reportNetworkLoss records the device as offline when a one-shot pass
// ended because it stopped answering. The daemon reports its own transitions.
func reportNetworkLoss(ctx context.Context, c daemon.Connectivity, res backfill.Result) {
	if res.NetworkLost {
		c.Connectivity(context.WithoutCancel(ctx), false)
	}
}

// printSummary writes the one-line result of a pass. Partial failure is not
// an error: failed days are retried by the next run.
func printSummary(w io.Writer, res backfill.Result) {
	fmt.Fprintf(w, "Done. Imported %d days (%s points). Total progress: %d/%d days (%.0f%%). Failed: %d.\n",
		res.DaysImported,
		humanize.Comma(int64(res.PointsWritten)),
		res.DaysCompleted,
		res.DaysTotal,
		res.PercentComplete(),
		res.DaysFailed,
	)
	switch {
	case res.NetworkLost:
		fmt.Fprintln(w, "Stopped early: the phone stopped responding.")
	case res.Interrupted:
		fmt.Fprintln(w, "Stopped early: interrupted.")
	}
}

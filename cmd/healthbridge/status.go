package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/healthbridge/internal/journal"
	"github.com/nerrad567/healthbridge/internal/progress"
	"github.com/nerrad567/healthbridge/internal/status"
)

func newStatusCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show import progress",
		Long: `Summarise the progress file for the configured range: completed and
remaining days, gaps, points imported and time since the last update.
When the run journal exists, import rate, ETA and failure history are
included. Safe to run while an import is in progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output in JSON format")
	return cmd
}

func runStatus(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	rng, err := importRange(cfg, time.Now())
	if err != nil {
		return err
	}

	// Read-only: never lock or write the progress file.
	store := progress.New(cfg.Backfill.ProgressFile, progress.WithoutPersistence())
	if err := store.Load(); err != nil {
		return err
	}

	provider := status.NewProvider(store, rng)

	ctx := cmd.Context()
	if cfg.Journal.Enabled {
		if _, statErr := os.Stat(cfg.Journal.Path); statErr == nil {
			repo, db, openErr := journal.Open(ctx, cfg.Journal)
			if openErr != nil {
				return openErr
			}
			defer db.Close() //nolint:errcheck // read-only use
			provider.SetJournal(repo)
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("checking journal: %w", statErr)
		}
	}

	report, err := provider.Report(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.WriteText(out)
}

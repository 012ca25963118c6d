package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/healthbridge/internal/progress"
)

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget all import progress",
		Long: `Delete the progress file so the next run imports every day again.
Points already in the database are not touched. Fails while another
healthbridge process holds the progress file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			store := progress.New(cfg.Backfill.ProgressFile)
			unlock, err := store.Lock()
			if err != nil {
				return err
			}
			defer unlock()

			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress reset: %s\n", store.Path())
			return nil
		},
	}
}

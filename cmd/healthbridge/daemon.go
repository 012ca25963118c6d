package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/healthbridge/internal/daemon"
	"github.com/nerrad567/healthbridge/internal/status"
)

func newDaemonCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Import whenever the phone is reachable until the range is complete",
		Long: `Probe the phone every poll interval and run a backfill pass whenever it
answers. The daemon exits once a pass finds nothing left to import, or on
Ctrl+C. When status.listen is set, the progress report is served over HTTP
at /api/v1/status while the daemon runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, opts)
		},
	}
	addImportFlags(cmd, opts)
	cmd.Flags().DurationVar(&opts.poll, "poll-interval", 0, "time between reachability checks (default 30s)")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve the status report on this host:port")
	return cmd
}

func runDaemon(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Info("starting healthbridge",
		"version", version,
		"mode", "daemon",
		"poll_interval", cfg.Daemon.PollInterval,
	)

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.reset {
		if err := a.store.Reset(); err != nil {
			return err
		}
	}

	loop := daemon.New(daemon.Config{PollInterval: cfg.Daemon.PollInterval}, a.client, a.engine, a.store)
	loop.SetLogger(log.With("component", "daemon"))
	if a.recorder != nil {
		loop.SetConnectivity(a.recorder)
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	// The loop finishing on its own also stops the status server.
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	if cfg.Status.Listen != "" {
		provider := status.NewProvider(a.store, a.rng)
		provider.SetDaemon(loop)
		if a.journal != nil {
			provider.SetJournal(a.journal)
		}

		srv, err := status.NewServer(cfg.Status, provider, version)
		if err != nil {
			return err
		}
		srv.SetLogger(log.With("component", "status"))
		if err := srv.Start(loopCtx); err != nil {
			return err
		}

		g.Go(func() error {
			<-loopCtx.Done()
			return srv.Close()
		})
	}

	g.Go(func() error {
		defer stop()
		return loop.Run(loopCtx)
	})

	return g.Wait()
}

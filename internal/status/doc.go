// Package status reports how far the backfill has got.
//
// A Report is computed from the progress file, the import range and, when
// available, the run journal and the daemon loop. It is rendered as text
// by `healthbridge status` and served as JSON by the daemon:
//
//	provider := status.NewProvider(store, rng)
//	provider.SetJournal(repo)
//	provider.SetDaemon(loop)
//
//	srv, err := status.NewServer(cfg.Status, provider, version)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Import rate and ETA need the journal: the rate is completed days per
// calendar day since the first journalled attempt.
package status

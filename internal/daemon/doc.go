// Package daemon keeps a backfill going across device disconnects.
//
// The loop probes the device, runs a pass when it answers and sleeps
// otherwise. It ends once a pass imports nothing without losing the device,
// which means every day that can be imported has been.
//
//	loop := daemon.New(daemon.Config{PollInterval: 30 * time.Second}, client, engine, store)
//	loop.SetConnectivity(recorder)
//	err := loop.Run(ctx)
package daemon

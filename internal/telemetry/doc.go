// Package telemetry reports backfill activity.
//
// A Recorder implements both backfill.Telemetry and daemon.Connectivity and
// forwards each event to up to three destinations:
//
//   - the sink, as backfill_day, backfill_progress, backfill_error,
//     backfill_pass and backfill_connectivity points
//   - MQTT, on the healthbridge/backfill/... topics (progress and
//     connectivity retained)
//   - the SQLite run journal
//
// Delivery is best effort. A failing destination is logged and skipped.
package telemetry

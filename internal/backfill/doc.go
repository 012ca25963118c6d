// Package backfill imports historical health data from the phone, one day at
// a time, newest first.
//
// A pass walks the days of the import range that the progress store does
// not yet list as complete. Each day is split into four 6-hour windows in a
// fixed timezone offset; every window is queried (with retries inside the
// device client), encoded into points and written immediately. Only when all
// four windows succeed is the day marked complete and the progress file
// rewritten.
//
// # Failure handling
//
//   - transport failures add their attempt count to a pass-wide counter
//     that any successful window resets; at NetworkLossThreshold the pass
//     ends with Result.NetworkLost
//   - device error envelopes and sink write failures fail the day only
//   - a progress save failure is returned and ends the run
//
// A day that fails after some windows were written is simply retried later,
// so the sink may receive the same points more than once.
//
// # Cancellation
//
// Cancelling the context stops the pass at the next window or day boundary.
// Queries and writes already in flight complete or time out on their own.
package backfill

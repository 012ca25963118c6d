// Package remote queries the Health Auto Export TCP server running on the phone.
//
// Every query opens a new connection, sends a single JSON request naming the
// "health_metrics" tool and a time window, half-closes the send side and
// reads until the device closes the stream. No connection is ever reused.
//
// # Failure classes
//
//   - *TransportError (errors.Is ErrTransport): refused, timeout or reset,
//     after the configured number of attempts
//   - *ProtocolError (errors.Is ErrProtocol): the device answered with an
//     error envelope; never retried
//   - malformed JSON: logged and returned as an empty result
//
// # Response shapes
//
// The device wraps its payload inconsistently. DecodeEnvelope accepts the
// text-wrapped tool result shape and the direct data shape and reports
// which one matched.
//
// Probe performs a connect-and-close reachability check with its own,
// shorter timeout.
package remote

// Package lineproto maps device health samples onto time-series write points.
//
// Encode is a pure function: it has no configuration and does no I/O. The
// resulting points go straight to the InfluxDB client; Marshal renders them
// as line protocol text for sinks that take a raw /write body.
package lineproto

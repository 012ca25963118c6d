// Package logging provides structured logging for healthbridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for services (machine-parsable)
//   - Text output for interactive use (human-readable)
//   - "auto" format that picks text when writing to a terminal
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in healthbridge.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "auto"     # auto, json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("pass complete", "days_imported", 12)
//	logger.Error("write failed", "error", err)
//
// # Security
//
// Never log sink tokens or MQTT passwords.
package logging

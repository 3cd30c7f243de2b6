// Package logging provides structured logging for Gray Logic Grow.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text while developing, and the
// service/version fields on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("entry dispatched", "command", "pump_on")
//	logger.Error("transport failed", "error", err)
package logging

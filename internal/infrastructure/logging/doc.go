// Package logging provides structured logging for GeoControl.
//
// It wraps log/slog so every component logs the same way: JSON in
// production, text when developing locally, and a service/version pair on
// every entry.
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
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("api server listening", "address", addr)
//	logger.Error("measurement insert failed", "error", err)
//
// Never log passwords, password hashes, or bearer tokens.
package logging

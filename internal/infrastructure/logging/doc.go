// Package logging provides structured logging for Nexus Grid.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same default fields (service, version) and the same
// level filtering.
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
//	engineLog := logger.Component("arbitration")
//	engineLog.Info("preemption activated", "preemption_id", id)
//
// Never log secrets, tokens or broker passwords.
package logging

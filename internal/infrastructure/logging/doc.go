// Package logging provides structured logging for the hub driver.
//
// It wraps log/slog. Entries carry service and version fields, components
// add their own name through Component, and values of sensitive keys
// (password, token, access_token, refresh_token, secret) are replaced
// before they are written.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	engine := log.Component("session")
//	engine.Info("session registered", "session_id", id)
package logging

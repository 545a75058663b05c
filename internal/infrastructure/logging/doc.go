// Package logging provides structured logging for Homelink.
//
// It wraps the standard library log/slog with configuration-driven output
// format, level filtering, and default service fields. Component packages
// obtain sub-loggers via With:
//
//	log := logging.New(cfg.Logging, version)
//	sessionLog := log.With("component", "session")
//
// Packages that need logging declare their own minimal Logger interface
// (Debug/Info/Warn/Error with slog-style key-value args) so they do not
// depend on this package directly.
package logging

// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// When Config.File is set, entries are also written to a size-rotated file
// managed by lumberjack.
//
// Bridge components log with a context field so that several execution
// contexts sharing one process can be told apart:
//
//	logger := logging.NewDefault()
//	log := logger.For("ctx_01J...")
//	log.Debug("flush delivered", zap.Int("records", 3))
package logging

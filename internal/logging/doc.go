// Package logging provides structured logging for janos bridge sessions.
//
// The package wraps Go's log/slog to write JSON-formatted logs into the
// session directory. The terminal belongs to the interactive menus while a
// bridge is running, so nothing here writes to stdout; when no directory is
// given the logger falls back to stderr, which is only used by headless
// subcommands.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (session ID, device path, component)
//   - Size-based rotation with an optional gzip step for old files
//   - Reading and filtering a session's log for the logs subcommand
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(sessionDir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	devLogger := logger.WithSession(id).WithDevice("/dev/ttyUSB0")
//	devLogger.Info("command sent", "command", "scan_networks")
//
// Each line is a JSON object:
//
//	{"time":"...","level":"INFO","msg":"command sent","session_id":"...","device":"/dev/ttyUSB0","command":"scan_networks"}
package logging

// Package logging builds the process slog.Logger.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON or text output, optionally teed to a log file
//   - Redaction of tokens and credentials in messages and attributes
//   - A cycle id carried in the context and added to every record
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactSecrets: true})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// Packages then derive their own logger with
// slog.Default().With("component", "...").
package logging

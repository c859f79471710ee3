// Package logger provides a simple, thread-safe structured logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each entry is written as one JSON object per line (via logiface and
// stumpy) carrying a timestamp, level, optional task ID, and message.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Application started")
//	logger.Info("frame-0", "Worker started")
//	logger.Error("frame-0", "Failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("frame-0", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// The level is stored atomically and each entry is written under a mutex,
// so all operations are safe for concurrent use.
package logger

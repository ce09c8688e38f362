// Package logging provides structured logging for the Motion gateway client.
//
// This package wraps zap with convenience functions for the logging patterns
// used across the client: transport exchanges, multicast dispatch and state
// parsing.
//
// # Log Levels
//
//   - Debug: per-attempt transport detail, dropped pushes, raw datagrams
//   - Info: discovery results, listener lifecycle, first-seen devices
//   - Warn: anomalous wire values, empty discovery windows, token rotation
//   - Error: exhausted retries, unexpected message types, parse failures
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Warn("gateway token has changed",
//	    zap.String("addr", "192.168.1.100"),
//	)
//
// # Redaction
//
// Wire documents carry credentials. Never log a protocol.Message directly;
// use the Document field helper, which applies protocol.Redact first:
//
//	logging.Error("unexpected response", logging.Document("response", msg))
//
// # Configuration
//
// Logging is silent by default. Set the MOTIONGO_LOG_LEVEL environment
// variable, or initialize explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging

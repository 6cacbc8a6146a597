// Package logger provides structured logging for reactivekit services
// using zerolog.
//
// Output is either JSON or a compact console format. Component loggers are
// obtained by name and carry fields as plain maps.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("api")
//	log.Info("drive finished", logger.DriveFields("flux", 5, "complete", elapsed))
package logger

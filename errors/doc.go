// Package errors provides the AppError taxonomy shared by the HTTP layer:
// machine-readable codes, HTTP status mapping and retryable detection.
//
// Failures raised while a sequence is driven map onto TRANSFORM_FAILED, and a
// client that disconnects mid-stream onto STREAM_CANCELLED.
package errors

// Package api exposes sequence pipelines over HTTP.
//
//	GET /flux    the integers 1..5; a JSON array, or NDJSON for Accept: application/x-ndjson
//	GET /mono    a single greeting; text/plain, or a JSON string for Accept: application/json
//	GET /stream  an interval counter as server-sent events until the client disconnects
//
// With a generator and a tracker configured the handler also serves:
//
//	GET    /names             the available names sequences
//	GET    /names/:operation  one names sequence; JSON, or events for Accept: text/event-stream
//	GET    /streams           the open event streams
//	DELETE /streams?match=    cancel the open streams whose id matches a glob
//
// /stream accepts optional query parameters: period (a Go duration) and
// limit (end the stream after that many events).
//
// Each handler drives its pipeline once per request inside an
// observability.Drive, so every request produces a pipeline.drive span and
// updates the pipeline.* instruments. A pipeline failure becomes the
// standard error body: TRANSFORM_FAILED for a failing stage function,
// STREAM_CANCELLED when the client went away first.
package api

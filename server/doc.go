// Package server provides the HTTP server for reactivekit services: gin
// routes behind a root ServeMux, served over HTTP/1.1 and h2c.
//
// The server follows the component pattern with lifecycle management,
// health endpoints and a handler-level middleware stack.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation into the logger context
//   - CORS: cross-origin resource sharing
//   - RequestLogger: request logging with status, size and duration
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /info: build information and uptime
//   - /live: liveness probe
//   - /ready: readiness probe
package server

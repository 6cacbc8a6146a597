// Package version reports build information for the service binaries.
//
// Version, commit and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/reactivekit/version.Version=1.0.0" ./cmd/movies-info-service
package version

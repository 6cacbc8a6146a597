// Package component defines lifecycle-managed service parts and the registry
// that starts them in order and stops them in reverse.
package component

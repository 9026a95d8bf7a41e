// Package integration provides cross-package integration tests for Autonomica.
// These tests exercise full workflow runs against a real sqlite history store.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration

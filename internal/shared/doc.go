// Package shared holds helpers used across packages that belong to no single layer.
//
// The testutil subpackage captures slog output in tests and builds issue
// fixtures (CSV text and typed tables) shared by the ingestion, service and
// transport tests.
package shared

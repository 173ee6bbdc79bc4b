// Package shared holds helpers used across packages. Its testutil
// subpackage captures slog records so tests can assert on what was logged.
package shared

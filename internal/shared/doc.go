// Package shared holds utilities used across the pipeline's packages
// that belong to no specific domain layer. Today that is the testutil
// subpackage: an in-memory slog handler for asserting on structured log
// output in tests. Nothing here may carry business logic or depend on
// other internal packages.
package shared

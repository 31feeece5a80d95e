package main

import (
	"errors"

	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/source"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no source, missing workspace or cache)
	ExitDataError   = 3 // Data error (malformed snapshot, validation failure)
	ExitFetchError  = 4 // Snapshot fetch failed (network, auth, timeout, upstream)
)

// fetchExitCode maps a snapshot source error to an exit code.
func fetchExitCode(err error) int {
	switch {
	case errors.Is(err, source.ErrNoCache):
		return ExitConfigError
	case errors.Is(err, source.ErrInvalidResponse), graph.IsValidationError(err):
		return ExitDataError
	default:
		return ExitFetchError
	}
}

package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/matsen/citeweave/internal/assemble"
	"github.com/matsen/citeweave/internal/config"
	"github.com/matsen/citeweave/internal/docio"
	"github.com/matsen/citeweave/internal/source"
	"github.com/matsen/citeweave/internal/style"
)

// Exit codes
const (
	ExitSuccess     = 0   // Success
	ExitError       = 1   // General error (invalid arguments, runtime failure)
	ExitConfigError = 2   // Configuration error (invalid config file, unknown style)
	ExitDataError   = 3   // Data error (unreadable document, assembly conflict)
	ExitSourceError = 4   // A single lookup failed at its source (resolve command)
	ExitCancelled   = 130 // Interrupted
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, config.ErrInvalid), errors.Is(err, style.ErrUnknownStyle):
		return ExitConfigError
	case errors.Is(err, docio.ErrUnsupportedFormat),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, assemble.ErrAssemblyConflict):
		return ExitDataError
	case errors.Is(err, source.ErrSourceUnavailable):
		return ExitSourceError
	default:
		return ExitError
	}
}

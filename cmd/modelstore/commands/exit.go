package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitGeneric      = 1
	ExitUsage        = 2
	ExitConflict     = 3
	ExitNotFound     = 4
	ExitIncompatible = 5
	ExitBrokenChain  = 6
	ExitIO           = 7
)

// usageError marks bad arguments, flags or configuration.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs wraps a cobra argument validator so its failures exit with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	switch store.Classify(err) {
	case store.ClassConflict:
		return ExitConflict
	case store.ClassNotFound:
		return ExitNotFound
	case store.ClassIncompatible:
		return ExitIncompatible
	case store.ClassBrokenChain:
		return ExitBrokenChain
	case store.ClassIO:
		return ExitIO
	case store.ClassInvalid:
		return ExitUsage
	default:
		return ExitGeneric
	}
}

// verifyFailedError reports groups that failed verification.
type verifyFailedError struct {
	path   string
	failed int
	first  error
}

func (e *verifyFailedError) Error() string {
	return fmt.Sprintf("%s: %d group(s) failed verification: %v", e.path, e.failed, e.first)
}

func (e *verifyFailedError) Unwrap() error { return e.first }

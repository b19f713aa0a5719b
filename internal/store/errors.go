package store

import (
	"errors"
	"fmt"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
)

// Common errors.
var (
	ErrBrokenChain = errors.New("broken producer chain")
	ErrChainCycle  = errors.New("producer chain contains a cycle")
	ErrChainMember = errors.New("group is part of another model's chain")
)

// BrokenChainError reports a chain link that points at a missing or unreadable group.
type BrokenChainError struct {
	Path     string
	Group    string // Missing ancestor group
	Referrer string // Group whose payload names it
	Err      error  // Underlying cause, if the group exists but failed to load
}

// Error implements the error interface.
func (e *BrokenChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broken chain in %s: ancestor %q of %q: %v", e.Path, e.Group, e.Referrer, e.Err)
	}
	return fmt.Sprintf("broken chain in %s: ancestor %q of %q is missing", e.Path, e.Group, e.Referrer)
}

// Unwrap returns the underlying cause.
func (e *BrokenChainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrBrokenChain.
func (e *BrokenChainError) Is(target error) bool {
	return target == ErrBrokenChain
}

// Error classes used for metrics and CLI exit codes.
const (
	ClassConflict        = "conflict"
	ClassNotFound        = "not_found"
	ClassNotSerializable = "not_serializable"
	ClassIncompatible    = "incompatible"
	ClassBrokenChain     = "broken_chain"
	ClassInvalid         = "invalid"
	ClassIO              = "io"
	ClassOther           = "other"
)

// Classify maps an error onto a coarse class.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBrokenChain):
		return ClassBrokenChain
	case errors.Is(err, container.ErrConflict):
		return ClassConflict
	case errors.Is(err, container.ErrNotFound):
		return ClassNotFound
	case errors.Is(err, codec.ErrNotSerializable):
		return ClassNotSerializable
	case errors.Is(err, codec.ErrUnknownType),
		errors.Is(err, codec.ErrIncompatibleVersion),
		errors.Is(err, codec.ErrMigrationRequired),
		errors.Is(err, codec.ErrSchema):
		return ClassIncompatible
	case errors.Is(err, container.ErrInvalidName),
		errors.Is(err, ErrChainCycle),
		errors.Is(err, ErrChainMember):
		return ClassInvalid
	case errors.Is(err, container.ErrIO),
		errors.Is(err, container.ErrCorrupt),
		errors.Is(err, container.ErrInvalidMagic),
		errors.Is(err, container.ErrUnsupportedVersion),
		errors.Is(err, container.ErrChecksumMismatch),
		errors.Is(err, container.ErrLocked),
		errors.Is(err, codec.ErrInvalidMagic),
		errors.Is(err, codec.ErrChecksumMismatch),
		errors.Is(err, codec.ErrTruncated),
		errors.Is(err, codec.ErrCorruptPayload),
		errors.Is(err, codec.ErrHeaderTooLarge):
		return ClassIO
	default:
		return ClassOther
	}
}

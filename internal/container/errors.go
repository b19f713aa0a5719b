package container

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrConflict           = errors.New("group already exists")
	ErrNotFound           = errors.New("not found")
	ErrIO                 = errors.New("container i/o failure")
	ErrInvalidMagic       = errors.New("not a model container: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported container format version")
	ErrCorrupt            = errors.New("container index is corrupt")
	ErrChecksumMismatch   = errors.New("payload digest mismatch: group may be corrupted")
	ErrLocked             = errors.New("container is locked by another writer")
	ErrInvalidName        = errors.New("invalid group name")
	ErrClosed             = errors.New("container is closed")
	ErrReadOnly           = errors.New("container is opened read-only")
)

// ConflictError reports a group name that already exists.
type ConflictError struct {
	Path string
	Name string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("model %q already exists in %s (pass overwrite to replace it)", e.Name, e.Path)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError reports a missing container file or group.
type NotFoundError struct {
	Path string
	Name string // Empty when the file itself is missing
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("model file %s not found", e.Path)
	}
	return fmt.Sprintf("model %q not found in %s", e.Name, e.Path)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IOError wraps a storage failure with the operation and file involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NameError reports a group name that cannot be stored.
type NameError struct {
	Name    string
	Details string
}

// Error implements the error interface.
func (e *NameError) Error() string {
	return fmt.Sprintf("invalid group name %q: %s", e.Name, e.Details)
}

// Is reports whether target is ErrInvalidName.
func (e *NameError) Is(target error) bool {
	return target == ErrInvalidName
}

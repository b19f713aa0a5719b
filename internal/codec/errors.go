package codec

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotSerializable     = errors.New("attribute not serializable")
	ErrUnknownType         = errors.New("unknown type")
	ErrIncompatibleVersion = errors.New("incompatible version")
	ErrMigrationRequired   = errors.New("migration required")
	ErrSchema              = errors.New("schema violation")
	ErrInvalidMagic        = errors.New("invalid payload magic bytes")
	ErrChecksumMismatch    = errors.New("checksum mismatch: payload may be corrupted")
	ErrHeaderTooLarge      = errors.New("payload header exceeds maximum size")
	ErrTruncated           = errors.New("payload truncated")
	ErrCorruptPayload      = errors.New("payload is malformed")
)

// NotSerializableError reports an attribute whose value cannot be captured in a payload.
type NotSerializableError struct {
	Type      string // Type tag of the object being serialized
	Attribute string // Offending attribute name
	GoType    string // Go type of the rejected value
}

// Error implements the error interface.
func (e *NotSerializableError) Error() string {
	return fmt.Sprintf("%s.%s: value of type %s cannot be serialized", e.Type, e.Attribute, e.GoType)
}

// Is reports whether target is ErrNotSerializable.
func (e *NotSerializableError) Is(target error) bool {
	return target == ErrNotSerializable
}

// UnknownTypeError reports a type tag with no registered reconstruction strategy.
type UnknownTypeError struct {
	Type string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q: no reconstruction strategy registered", e.Type)
}

// Is reports whether target is ErrUnknownType.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// IncompatibleVersionError reports a payload whose version lies outside the supported range.
type IncompatibleVersionError struct {
	Type         string // Type tag, or "payload" for the wire format itself
	Found        int    // Version recorded in the payload
	MinSupported int    // Oldest version the running software can read
	MaxSupported int    // Newest version the running software can read
}

// Error implements the error interface.
func (e *IncompatibleVersionError) Error() string {
	if e.Found > e.MaxSupported {
		return fmt.Sprintf("%s: version %d was written by newer software (supported %d..%d)",
			e.Type, e.Found, e.MinSupported, e.MaxSupported)
	}
	return fmt.Sprintf("%s: version %d is no longer supported (supported %d..%d)",
		e.Type, e.Found, e.MinSupported, e.MaxSupported)
}

// Is reports whether target is ErrIncompatibleVersion.
func (e *IncompatibleVersionError) Is(target error) bool {
	return target == ErrIncompatibleVersion
}

// MigrationRequiredError reports a missing upgrade step between two schema versions.
type MigrationRequiredError struct {
	Type string
	From int
	To   int
}

// Error implements the error interface.
func (e *MigrationRequiredError) Error() string {
	return fmt.Sprintf("%s: no migration registered from version %d to %d", e.Type, e.From, e.To)
}

// Is reports whether target is ErrMigrationRequired.
func (e *MigrationRequiredError) Is(target error) bool {
	return target == ErrMigrationRequired
}

// SchemaError reports a record that does not match its declared schema.
type SchemaError struct {
	Type    string
	Field   string
	Details string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Details)
	}
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Details)
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ValidationError provides detailed information about malformed array layouts.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Field   string // Primary field name involved
	Field2  string // Secondary field name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field2 != "" {
		return fmt.Sprintf("%s: arrays %q and %q: %s", e.Type, e.Field, e.Field2, e.Details)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: array %q: %s", e.Type, e.Field, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Is reports whether target is ErrCorruptPayload.
func (e *ValidationError) Is(target error) bool {
	return target == ErrCorruptPayload
}

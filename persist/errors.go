// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package persist

import (
	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// Error sentinels, for use with errors.Is.
var (
	ErrConflict            = container.ErrConflict
	ErrNotFound            = container.ErrNotFound
	ErrIO                  = container.ErrIO
	ErrCorrupt             = container.ErrCorrupt
	ErrChecksumMismatch    = container.ErrChecksumMismatch
	ErrLocked              = container.ErrLocked
	ErrInvalidName         = container.ErrInvalidName
	ErrNotSerializable     = codec.ErrNotSerializable
	ErrUnknownType         = codec.ErrUnknownType
	ErrIncompatibleVersion = codec.ErrIncompatibleVersion
	ErrMigrationRequired   = codec.ErrMigrationRequired
	ErrSchema              = codec.ErrSchema
	ErrCorruptPayload      = codec.ErrCorruptPayload
	ErrBrokenChain         = store.ErrBrokenChain
)

// Typed errors, for use with errors.As.
type (
	ConflictError            = container.ConflictError
	NotFoundError            = container.NotFoundError
	IOError                  = container.IOError
	NotSerializableError     = codec.NotSerializableError
	UnknownTypeError         = codec.UnknownTypeError
	IncompatibleVersionError = codec.IncompatibleVersionError
	MigrationRequiredError   = codec.MigrationRequiredError
	SchemaError              = codec.SchemaError
	ValidationError          = codec.ValidationError
	BrokenChainError         = store.BrokenChainError
)

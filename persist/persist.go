// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package persist

import (
	"context"
	"sync"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/store"
)

// Persistable is implemented by objects that can be saved.
type Persistable = codec.Persistable

// Producer is implemented by objects that remember the object that produced their input.
type Producer = codec.Producer

// Record is the attribute set of one object.
type Record = codec.Record

// TypeSpec declares a persistable type: its schema, constructor and migrations.
type TypeSpec = codec.TypeSpec

// FieldSpec declares one attribute of a TypeSpec.
type FieldSpec = codec.FieldSpec

// Migration upgrades a record from version v to v+1.
type Migration = codec.Migration

// Kind is the value kind of an attribute.
type Kind = codec.Kind

// Attribute kinds.
const (
	KindNull    Kind = codec.KindNull
	KindBool    Kind = codec.KindBool
	KindInt     Kind = codec.KindInt
	KindFloat   Kind = codec.KindFloat
	KindString  Kind = codec.KindString
	KindStrings Kind = codec.KindStrings
	KindArray   Kind = codec.KindArray
	KindObject  Kind = codec.KindObject
)

// Metadata describes one stored model.
type Metadata = container.Metadata

// SaveOptions controls a save.
type SaveOptions = store.SaveOptions

// ListOptions controls a listing.
type ListOptions = store.ListOptions

// CopyOptions controls a copy.
type CopyOptions = store.CopyOptions

// FileListing is the listing of one container file.
type FileListing = store.FileListing

// VerifyReport is the outcome of Verify.
type VerifyReport = store.VerifyReport

// Store saves and loads models with a fixed configuration.
type Store = store.Store

// Option configures a Store.
type Option = store.Option

// DefaultName is the model name used when none is given.
const DefaultName = store.DefaultName

// Store options.
var (
	WithRegistry       = store.WithRegistry
	WithLogger         = store.WithLogger
	WithTracerProvider = store.WithTracerProvider
	WithMeterProvider  = store.WithMeterProvider
	WithCompression    = store.WithCompression
	WithSync           = store.WithSync
	WithClock          = store.WithClock
	WithDefaultName    = store.WithDefaultName
	WithExtension      = store.WithExtension
	WithVerifyWorkers  = store.WithVerifyWorkers
)

// New creates a Store. The package-level functions use a Store with default options.
func New(opts ...Option) *Store {
	return store.New(opts...)
}

var defaultStore = sync.OnceValue(func() *Store { return store.New() })

// Register adds a type to the process-wide registry.
func Register(spec TypeSpec) error {
	return codec.Default.Register(spec)
}

// Save stores obj in the container at path.
func Save(obj Persistable, path string, opts SaveOptions) error {
	return defaultStore().Save(context.Background(), obj, path, opts)
}

// Load restores a model. An empty name loads the default model.
func Load(path, name string) (Persistable, error) {
	return defaultStore().Load(context.Background(), path, name)
}

// ListModels lists the models of one file in insertion order.
func ListModels(path string) ([]Metadata, error) {
	return defaultStore().ListModels(context.Background(), path, ListOptions{})
}

// ListModelsGlob lists every container matched by a file name, directory or glob.
func ListModelsGlob(pattern string, recursive bool) ([]FileListing, error) {
	return defaultStore().ListModelsGlob(context.Background(), pattern, recursive, ListOptions{})
}

// Delete removes a model and its chain.
func Delete(path, name string) error {
	return defaultStore().Delete(context.Background(), path, name)
}

// Copy copies a model and its chain between files.
func Copy(src, name, dst string, opts CopyOptions) error {
	return defaultStore().Copy(context.Background(), src, name, dst, opts)
}

// Verify checks every model of a file.
func Verify(path string) (*VerifyReport, error) {
	return defaultStore().Verify(context.Background(), path)
}

// Compact rewrites a file without dead space.
func Compact(path string) (int64, error) {
	return defaultStore().Compact(context.Background(), path)
}

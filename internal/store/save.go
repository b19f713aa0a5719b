package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
)

// SaveOptions controls a single save.
type SaveOptions struct {
	Name      string // Model name; the store default when empty
	Overwrite bool   // Replace an existing model of the same name, chain included
	SaveChain bool   // Also store every upstream producer
}

type stagedGroup struct {
	meta    container.Metadata
	payload []byte
}

// Save writes obj to the container at path, creating the file if needed.
//
// With SaveChain, each upstream producer is stored as group "<name>@upstream<N>" (N = 1 for
// the immediate producer) and all groups are committed together. Without it the upstream
// reference is dropped. A name collision without Overwrite fails with a ConflictError and
// leaves the existing model untouched.
func (s *Store) Save(ctx context.Context, obj codec.Persistable, path string, opts SaveOptions) (err error) {
	name := s.nameOrDefault(opts.Name)
	ctx, span := s.start(ctx, spanSave, path, name)
	defer func() { s.finish(ctx, span, "save", err) }()

	if isNil(obj) {
		return errors.New("save: object is nil")
	}
	if err := ValidateModelName(name); err != nil {
		return err
	}

	objs := []codec.Persistable{obj}
	if opts.SaveChain {
		if objs, err = collectChain(obj); err != nil {
			return fmt.Errorf("save %q to %s: %w", name, path, err)
		}
	}
	span.SetAttributes(attribute.Int(attrChain, len(objs)-1))

	staged := make([]stagedGroup, len(objs))
	for i, o := range objs {
		g, err := s.stage(o, name, i, len(objs))
		if err != nil {
			return fmt.Errorf("save %q to %s: %w", name, path, err)
		}
		staged[i] = g
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := container.OpenOrCreate(path, s.containerOptions(false))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !opts.Overwrite && f.HasGroup(name) {
		return &container.ConflictError{Path: path, Name: name}
	}

	b := f.NewBatch()
	if opts.Overwrite {
		for _, m := range f.All() {
			if m.Name == name || m.Owner == name {
				if err := b.Delete(m.Name); err != nil {
					return err
				}
			}
		}
	}
	// Oldest producer first.
	for i := len(staged) - 1; i >= 0; i-- {
		if err := b.Put(staged[i].meta, staged[i].payload, false); err != nil {
			if errors.Is(err, container.ErrConflict) {
				return &container.ConflictError{Path: path, Name: name}
			}
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}

	for i, g := range staged {
		s.metrics.RecordSave(ctx, int64(len(g.payload)), i > 0)
	}
	s.log.InfoContext(ctx, "model saved", "path", path, "name", name,
		"type", staged[0].meta.Type, "chain", len(staged)-1, "overwrite", opts.Overwrite)
	return nil
}

// stage serializes the i-th object of a chain of n rooted at name.
func (s *Store) stage(obj codec.Persistable, name string, i, n int) (stagedGroup, error) {
	rec, err := s.reg.Serialize(obj)
	if err != nil {
		return stagedGroup{}, err
	}
	if i+1 < n {
		rec.Upstream = ChainMemberName(name, i+1)
	}

	payload, err := codec.Encode(rec, codec.EncodeOptions{Compress: s.compress})
	if err != nil {
		return stagedGroup{}, err
	}

	meta := container.Metadata{
		Name:             name,
		ClassRepr:        codec.Repr(rec),
		ClassStr:         codec.Str(obj, rec),
		ProducingVersion: rec.Producer,
		SavedChain:       rec.Upstream != "",
		Type:             rec.Type,
		FormatVersion:    rec.Version,
		Encoding:         container.DefaultEncoding,
		Upstream:         rec.Upstream,
	}
	if i > 0 {
		meta.Name = ChainMemberName(name, i)
		meta.Owner = name
	}
	return stagedGroup{meta: meta, payload: payload}, nil
}

// collectChain returns obj followed by its producers, nearest first.
func collectChain(obj codec.Persistable) ([]codec.Persistable, error) {
	objs := []codec.Persistable{obj}
	seen := make(map[uintptr]bool)
	mark := func(o codec.Persistable) bool {
		v := reflect.ValueOf(o)
		if v.Kind() != reflect.Pointer {
			return true
		}
		if seen[v.Pointer()] {
			return false
		}
		seen[v.Pointer()] = true
		return true
	}
	mark(obj)

	cur := obj
	for {
		p, ok := cur.(codec.Producer)
		if !ok {
			return objs, nil
		}
		up := p.Upstream()
		if isNil(up) {
			return objs, nil
		}
		if !mark(up) {
			return nil, fmt.Errorf("%w: %s reached twice", ErrChainCycle, up.TypeName())
		}
		if len(objs) > MaxChainLength {
			return nil, fmt.Errorf("producer chain longer than %d", MaxChainLength)
		}
		objs = append(objs, up)
		cur = up
	}
}

func isNil(o codec.Persistable) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

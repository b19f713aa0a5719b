package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/parallel"
)

// Delete removes a model and its chain members.
func (s *Store) Delete(ctx context.Context, path, name string) (err error) {
	name = s.nameOrDefault(name)
	ctx, span := s.start(ctx, spanDelete, path, name)
	defer func() { s.finish(ctx, span, "delete", err) }()

	f, err := container.Open(path, s.containerOptions(false))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	meta, err := f.Metadata(name)
	if err != nil {
		return err
	}
	if meta.IsChainMember() {
		return fmt.Errorf("%w: %q belongs to %q in %s", ErrChainMember, name, meta.Owner, path)
	}

	b := f.NewBatch()
	for _, m := range f.All() {
		if m.Name == name || m.Owner == name {
			if err := b.Delete(m.Name); err != nil {
				return err
			}
		}
	}
	removed := b.Len()
	if err := b.Commit(); err != nil {
		return err
	}
	span.SetAttributes(attribute.Int(attrGroups, removed))
	s.log.InfoContext(ctx, "model deleted", "path", path, "name", name)
	return nil
}

// CopyOptions controls Copy.
type CopyOptions struct {
	NewName   string // Destination name; the source name when empty
	Overwrite bool   // Replace an existing destination model
}

// Copy copies a model and its chain members from src to dst.
//
// Payload bytes are copied unchanged, so digests carry over. When the model is renamed,
// payloads that link to an ancestor are re-encoded with the renamed link.
func (s *Store) Copy(ctx context.Context, src, name, dst string, opts CopyOptions) (err error) {
	name = s.nameOrDefault(name)
	newName := opts.NewName
	if newName == "" {
		newName = name
	}
	ctx, span := s.start(ctx, spanCopy, src, name)
	defer func() { s.finish(ctx, span, "copy", err) }()

	if err := ValidateModelName(newName); err != nil {
		return err
	}

	same := samePath(src, dst)
	if same && name == newName {
		return fmt.Errorf("copy %q: source and destination are the same model", name)
	}

	df, err := container.OpenOrCreate(dst, s.containerOptions(false))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sf := df
	if !same {
		if sf, err = container.Open(src, s.containerOptions(true)); err != nil {
			return err
		}
		defer sf.Close()
	}

	head, err := sf.Metadata(name)
	if err != nil {
		return err
	}
	if head.IsChainMember() {
		return fmt.Errorf("%w: %q belongs to %q in %s", ErrChainMember, name, head.Owner, src)
	}

	rename := func(group string) string {
		if group == "" || name == newName {
			return group
		}
		return newName + strings.TrimPrefix(group, name)
	}

	var staged []stagedGroup
	for _, m := range sf.All() {
		if m.Name != name && m.Owner != name {
			continue
		}
		payload, err := sf.ReadPayload(m.Name)
		if err != nil {
			return err
		}
		if m.Upstream != "" && name != newName {
			if payload, err = relink(payload, rename(m.Upstream), s.compress); err != nil {
				return fmt.Errorf("copy %q: %w", m.Name, err)
			}
		}
		meta := m
		meta.Name = rename(m.Name)
		meta.Upstream = rename(m.Upstream)
		if m.Owner != "" {
			meta.Owner = newName
		}
		staged = append(staged, stagedGroup{meta: meta, payload: payload})
	}

	b := df.NewBatch()
	if opts.Overwrite {
		for _, m := range df.All() {
			if m.Name == newName || m.Owner == newName {
				if err := b.Delete(m.Name); err != nil {
					return err
				}
			}
		}
	}
	for _, g := range staged {
		if err := b.Put(g.meta, g.payload, false); err != nil {
			return err
		}
	}
	if err := b.Commit(); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int(attrGroups, len(staged)))
	s.log.InfoContext(ctx, "model copied", "src", src, "name", name, "dst", dst, "new_name", newName)
	return nil
}

// relink rewrites the upstream link of an encoded payload.
func relink(payload []byte, upstream string, compress bool) ([]byte, error) {
	rec, err := codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	rec.Upstream = upstream
	return codec.Encode(rec, codec.EncodeOptions{Compress: compress})
}

func samePath(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// GroupCheck is the verification outcome of one group.
type GroupCheck struct {
	Name string
	Type string
	Err  error
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Path   string
	Groups []GroupCheck
}

// OK reports whether every group passed.
func (r *VerifyReport) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the groups that did not pass.
func (r *VerifyReport) Failed() []GroupCheck {
	var out []GroupCheck
	for _, g := range r.Groups {
		if g.Err != nil {
			out = append(out, g)
		}
	}
	return out
}

// Verify reads every group of a file, checks its digest, decodes it, resolves its chain
// links and rebuilds the object. Per-group problems go into the report; the error is
// reserved for files that cannot be opened.
func (s *Store) Verify(ctx context.Context, path string) (report *VerifyReport, err error) {
	ctx, span := s.start(ctx, spanVerify, path, "")
	defer func() { s.finish(ctx, span, "verify", err) }()

	f, err := container.Open(path, s.containerOptions(true))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all := f.All()
	report = &VerifyReport{Path: path, Groups: make([]GroupCheck, len(all))}
	parallel.For(len(all), func(i int) {
		m := all[i]
		report.Groups[i] = GroupCheck{Name: m.Name, Type: m.Type, Err: s.checkGroup(f, m)}
	}, s.workers)
	span.SetAttributes(attribute.Int(attrGroups, len(report.Groups)))
	if failed := report.Failed(); len(failed) > 0 {
		s.log.WarnContext(ctx, "verification failed", "path", path, "failed", len(failed))
	}
	return report, nil
}

func (s *Store) checkGroup(f *container.File, m container.Metadata) error {
	payload, err := f.ReadPayload(m.Name)
	if err != nil {
		return err
	}
	rec, err := codec.Decode(payload)
	if err != nil {
		return err
	}
	if rec.Type != m.Type {
		return fmt.Errorf("payload type %q does not match recorded type %q", rec.Type, m.Type)
	}
	if rec.Upstream != m.Upstream {
		return fmt.Errorf("payload links to %q but metadata records %q", rec.Upstream, m.Upstream)
	}
	if rec.Upstream != "" && !f.HasGroup(rec.Upstream) {
		return &BrokenChainError{Path: f.Path(), Group: rec.Upstream, Referrer: m.Name}
	}
	if m.Owner != "" && !f.HasGroup(m.Owner) {
		return &BrokenChainError{Path: f.Path(), Group: m.Owner, Referrer: m.Name}
	}
	if _, err := s.reg.Deserialize(rec); err != nil {
		return err
	}
	return nil
}

// Compact rewrites a file without dead space and returns the bytes reclaimed.
func (s *Store) Compact(ctx context.Context, path string) (reclaimed int64, err error) {
	ctx, span := s.start(ctx, spanCompact, path, "")
	defer func() { s.finish(ctx, span, "compact", err) }()

	f, err := container.Open(path, s.containerOptions(false))
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	reclaimed, err = f.Compact()
	if err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "container compacted", "path", path, "reclaimed", reclaimed)
	return reclaimed, nil
}

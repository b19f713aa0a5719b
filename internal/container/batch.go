package container

import "slices"

type opKind int

const (
	opPut opKind = iota
	opDelete
)

type op struct {
	kind      opKind
	name      string
	pending   pending
	overwrite bool
}

// Batch stages group additions and removals that become visible together.
//
// Operations are applied in order: a Put of a name deleted earlier in the batch does not
// conflict, and a Put with overwrite replaces both stored and staged groups. Nothing is
// written until Commit, and a failed Commit leaves the file as it was.
type Batch struct {
	f   *File
	ops []op
}

// NewBatch starts an empty batch.
func (f *File) NewBatch() *Batch {
	return &Batch{f: f}
}

// Put stages a group. Name comes from meta.Name; Digest, PayloadSize and Created are
// filled in by the container. Conflicts are reported immediately.
func (b *Batch) Put(meta Metadata, payload []byte, overwrite bool) error {
	if err := ValidateName(meta.Name); err != nil {
		return err
	}
	meta.Digest = Digest(payload)
	meta.PayloadSize = int64(len(payload))
	if meta.Encoding == "" {
		meta.Encoding = DefaultEncoding
	}
	o := op{kind: opPut, name: meta.Name, pending: pending{meta: meta, payload: payload}, overwrite: overwrite}
	return b.stage(o)
}

// Delete stages the removal of a group.
func (b *Batch) Delete(name string) error {
	return b.stage(op{kind: opDelete, name: name})
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) stage(o op) error {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	if err := b.f.checkWritable(); err != nil {
		return err
	}
	if _, _, err := b.resolve(append(slices.Clip(b.ops), o)); err != nil {
		return err
	}
	b.ops = append(b.ops, o)
	return nil
}

// resolve replays ops against the current file state. Callers hold f.mu.
func (b *Batch) resolve(ops []op) (map[string]bool, []pending, error) {
	removed := make(map[string]bool)
	var added []pending

	find := func(name string) int {
		return slices.IndexFunc(added, func(p pending) bool { return p.meta.Name == name })
	}

	for _, o := range ops {
		_, stored := b.f.byName[o.name]
		inFile := stored && !removed[o.name]
		staged := find(o.name)

		switch o.kind {
		case opPut:
			if (inFile || staged >= 0) && !o.overwrite {
				return nil, nil, &ConflictError{Path: b.f.path, Name: o.name}
			}
			if staged >= 0 {
				added = slices.Delete(added, staged, staged+1)
			}
			if inFile {
				removed[o.name] = true
			}
			added = append(added, o.pending)
		case opDelete:
			switch {
			case staged >= 0:
				added = slices.Delete(added, staged, staged+1)
			case inFile:
				removed[o.name] = true
			default:
				return nil, nil, &NotFoundError{Path: b.f.path, Name: o.name}
			}
		}
	}
	return removed, added, nil
}

// Commit writes all staged operations. Additions alone are appended in place; any removal
// or replacement rewrites the file so that dropped payload bytes are gone from disk.
func (b *Batch) Commit() error {
	f := b.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkWritable(); err != nil {
		return err
	}

	removed, added, err := b.resolve(b.ops)
	if err != nil {
		return err
	}
	b.ops = nil
	if len(removed) == 0 && len(added) == 0 {
		return nil
	}

	now := f.opts.Now().UTC()
	for i := range added {
		added[i].meta.Created = now
	}

	if len(removed) == 0 {
		return f.appendGroups(added)
	}

	keep := make([]entry, 0, len(f.groups))
	for _, g := range f.groups {
		if !removed[g.Name] {
			keep = append(keep, g)
		}
	}
	_, err = f.rewrite(keep, added)
	return err
}

// DeleteGroup removes a single group.
func (f *File) DeleteGroup(name string) error {
	b := f.NewBatch()
	if err := b.Delete(name); err != nil {
		return err
	}
	return b.Commit()
}

// Compact rewrites the container with only live data and returns the bytes reclaimed.
func (f *File) Compact() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkWritable(); err != nil {
		return 0, err
	}
	keep := make([]entry, len(f.groups))
	copy(keep, f.groups)
	return f.rewrite(keep, nil)
}

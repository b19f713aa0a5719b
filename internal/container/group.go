package container

import "bytes"

// GroupWriter streams a single group's payload and commits it atomically.
type GroupWriter struct {
	f         *File
	meta      Metadata
	overwrite bool
	buf       bytes.Buffer
	done      bool
}

// CreateGroup starts writing a new group.
// Without overwrite, an existing name fails here rather than at Commit.
func (f *File) CreateGroup(name string, overwrite bool) (*GroupWriter, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	if _, exists := f.byName[name]; exists && !overwrite {
		return nil, &ConflictError{Path: f.path, Name: name}
	}
	return &GroupWriter{f: f, meta: Metadata{Name: name}, overwrite: overwrite}, nil
}

// Name returns the group name.
func (w *GroupWriter) Name() string {
	return w.meta.Name
}

// SetAttrs replaces the group attributes. The name is kept.
func (w *GroupWriter) SetAttrs(meta Metadata) {
	meta.Name = w.meta.Name
	w.meta = meta
}

// Write appends to the payload.
func (w *GroupWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

// Commit stores the group.
func (w *GroupWriter) Commit() error {
	if w.done {
		return ErrClosed
	}
	w.done = true
	b := w.f.NewBatch()
	if err := b.Put(w.meta, w.buf.Bytes(), w.overwrite); err != nil {
		return err
	}
	return b.Commit()
}

// Abort discards the group. Nothing was written to the file.
func (w *GroupWriter) Abort() {
	w.done = true
	w.buf.Reset()
}

package container

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
)

// pending is a group staged for writing.
type pending struct {
	meta    Metadata
	payload []byte
}

// appendGroups adds groups without touching existing bytes.
//
// Payloads and the new index go past the current end of file. The superblock is rewritten
// last, after everything it points at is durable.
func (f *File) appendGroups(added []pending) error {
	start := f.size
	offset := alignUp(start)

	groups := make([]entry, len(f.groups), len(f.groups)+len(added))
	copy(groups, f.groups)

	for _, p := range added {
		if _, err := f.f.WriteAt(p.payload, offset); err != nil {
			f.rollback(start)
			return &IOError{Op: "write", Path: f.path, Err: err}
		}
		groups = append(groups, entry{Metadata: p.meta, Offset: offset})
		offset = alignUp(offset + int64(len(p.payload)))
	}

	sb, end, err := f.writeIndex(f.f, groups, offset)
	if err != nil {
		f.rollback(start)
		return err
	}
	if err := f.sync(f.f); err != nil {
		f.rollback(start)
		return err
	}

	if _, err := f.f.WriteAt(sb.marshal(), 0); err != nil {
		return &IOError{Op: "write", Path: f.path, Err: err}
	}
	if err := f.sync(f.f); err != nil {
		return err
	}

	f.sb = sb
	f.size = end
	f.setGroups(groups)
	f.log.Debug("container commit", "path", f.path, "mode", "append",
		"added", len(added), "groups", len(groups), "generation", sb.Generation)
	return nil
}

// beforeRename, when set, runs just before a rewritten file replaces the original.
var beforeRename func(tmpName string)

// rewrite writes keep followed by added into a fresh file and renames it over the original.
// Returns the number of bytes reclaimed.
func (f *File) rewrite(keep []entry, added []pending) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return 0, &IOError{Op: "rewrite", Path: f.path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	// The new inode is locked before it becomes visible under f.path.
	if err := lockFile(tmp); err != nil {
		return 0, &IOError{Op: "lock", Path: tmpName, Err: err}
	}

	groups := make([]entry, 0, len(keep)+len(added))
	offset := int64(SuperblockSize)

	for _, g := range keep {
		src := io.NewSectionReader(f.f, g.Offset, g.PayloadSize)
		n, err := io.Copy(io.NewOffsetWriter(tmp, offset), src)
		if err != nil {
			return 0, &IOError{Op: "rewrite", Path: f.path, Err: err}
		}
		if n != g.PayloadSize {
			return 0, &IOError{Op: "rewrite", Path: f.path, Err: io.ErrUnexpectedEOF}
		}
		g.Offset = offset
		groups = append(groups, g)
		offset = alignUp(offset + n)
	}
	for _, p := range added {
		if _, err := tmp.WriteAt(p.payload, offset); err != nil {
			return 0, &IOError{Op: "rewrite", Path: f.path, Err: err}
		}
		groups = append(groups, entry{Metadata: p.meta, Offset: offset})
		offset = alignUp(offset + int64(len(p.payload)))
	}

	sb, end, err := f.writeIndex(tmp, groups, offset)
	if err != nil {
		return 0, err
	}
	if _, err := tmp.WriteAt(sb.marshal(), 0); err != nil {
		return 0, &IOError{Op: "rewrite", Path: f.path, Err: err}
	}
	if err := f.sync(tmp); err != nil {
		return 0, err
	}
	if info, err := f.f.Stat(); err == nil {
		_ = tmp.Chmod(info.Mode().Perm())
	}

	if beforeRename != nil {
		beforeRename(tmpName)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return 0, &IOError{Op: "rename", Path: f.path, Err: err}
	}
	committed = true
	f.syncDir()

	_ = unlockFile(f.f)
	_ = f.f.Close()
	f.f = tmp

	reclaimed := f.size - end
	f.sb = sb
	f.size = end
	f.setGroups(groups)
	f.log.Debug("container commit", "path", f.path, "mode", "rewrite",
		"added", len(added), "groups", len(groups), "generation", sb.Generation, "reclaimed", reclaimed)
	return reclaimed, nil
}

// writeIndex writes the index for groups at an aligned offset >= at and returns the
// superblock that points at it together with the resulting end of file.
func (f *File) writeIndex(w io.WriterAt, groups []entry, at int64) (superblock, int64, error) {
	idx, err := marshalIndex(groups)
	if err != nil {
		return superblock{}, 0, &IOError{Op: "write", Path: f.path, Err: err}
	}
	offset := alignUp(at)
	if _, err := w.WriteAt(idx, offset); err != nil {
		return superblock{}, 0, &IOError{Op: "write", Path: f.path, Err: err}
	}
	sb := superblock{
		Version:     FormatVersion,
		Flags:       f.sb.Flags,
		Generation:  f.sb.Generation + 1,
		IndexOffset: uint64(offset),   //nolint:gosec // G115: offset is non-negative
		IndexSize:   uint64(len(idx)), //nolint:gosec // G115: length is non-negative
		Checksum:    sha256.Sum256(idx),
	}
	return sb, offset + int64(len(idx)), nil
}

func (f *File) sync(osf *os.File) error {
	if f.opts.NoSync {
		return nil
	}
	if err := osf.Sync(); err != nil {
		return &IOError{Op: "sync", Path: f.path, Err: err}
	}
	return nil
}

// syncDir makes a rename durable. Failures are logged, the data itself is already synced.
func (f *File) syncDir() {
	if f.opts.NoSync {
		return
	}
	dir, err := os.Open(filepath.Dir(f.path))
	if err != nil {
		return
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil {
		f.log.Debug("directory sync failed", "path", f.path, "error", err)
	}
}

// rollback drops bytes appended by a failed commit. The superblock was not touched, so
// leftover bytes would be unreferenced anyway.
func (f *File) rollback(size int64) {
	if err := f.f.Truncate(size); err != nil {
		f.log.Warn("container rollback failed", "path", f.path, "error", err)
	}
}

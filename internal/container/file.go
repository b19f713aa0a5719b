package container

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxIndexSize bounds the index a reader is willing to load.
const maxIndexSize = 256 * 1024 * 1024

// Options configures how a container is opened.
type Options struct {
	// ReadOnly opens the file without taking the writer lock.
	ReadOnly bool

	// NoSync skips fsync on commit. Only useful for tests and scratch files.
	NoSync bool

	// Logger receives debug records for commits. Defaults to a discarding logger.
	Logger *slog.Logger

	// Now stamps the Created attribute. Defaults to time.Now.
	Now func() time.Time
}

// Stats summarizes the physical state of a container.
type Stats struct {
	Groups     int
	Generation uint32
	FileSize   int64 // Bytes on disk
	LiveBytes  int64 // Bytes referenced by the superblock, index and payloads
}

// File is an open model container.
//
// A File is safe for concurrent use by multiple goroutines. Only one writable File may be
// open on a path at a time; readers take no lock and see the state as of the last commit
// they loaded.
type File struct {
	mu     sync.Mutex
	path   string
	opts   Options
	log    *slog.Logger
	f      *os.File
	size   int64
	sb     superblock
	groups []entry
	byName map[string]int
	closed bool
}

// Open opens an existing container.
func Open(path string, opts Options) (*File, error) {
	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model files
	osf, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	if !opts.ReadOnly {
		if err := lockFile(osf); err != nil {
			_ = osf.Close()
			return nil, &IOError{Op: "lock", Path: path, Err: err}
		}
	}

	f := &File{path: path, opts: opts, f: osf}
	f.log = opts.Logger
	if f.log == nil {
		f.log = slog.New(slog.DiscardHandler)
	}
	if f.opts.Now == nil {
		f.opts.Now = time.Now
	}

	if err := f.load(); err != nil {
		f.release()
		return nil, err
	}
	return f, nil
}

// OpenOrCreate opens a container, creating an empty one first if path does not exist.
// A read-only open never creates.
func OpenOrCreate(path string, opts Options) (*File, error) {
	if !opts.ReadOnly {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := createEmpty(path, opts); err != nil {
				return nil, err
			}
		}
	}
	return Open(path, opts)
}

// createEmpty atomically materializes an empty container at path.
// If another process wins the race, its file is kept.
func createEmpty(path string, opts Options) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	idx, err := marshalIndex(nil)
	if err != nil {
		_ = tmp.Close()
		return &IOError{Op: "create", Path: path, Err: err}
	}
	sb := superblock{Version: FormatVersion, IndexOffset: SuperblockSize, IndexSize: uint64(len(idx))}
	sb.Checksum = sha256.Sum256(idx)

	buf := append(sb.marshal(), idx...)
	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if !opts.NoSync {
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return &IOError{Op: "sync", Path: path, Err: err}
		}
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}

	// Link refuses to replace an existing file, unlike Rename.
	err = os.Link(tmpName, path)
	switch {
	case err == nil, errors.Is(err, fs.ErrExist):
		return nil
	default:
		if err := os.Rename(tmpName, path); err != nil {
			return &IOError{Op: "create", Path: path, Err: err}
		}
	}
	return nil
}

// load reads the superblock and index from f.f.
func (f *File) load() error {
	info, err := f.f.Stat()
	if err != nil {
		return &IOError{Op: "stat", Path: f.path, Err: err}
	}
	size := info.Size()

	buf := make([]byte, SuperblockSize)
	if size < SuperblockSize {
		return &IOError{Op: "open", Path: f.path, Err: ErrInvalidMagic}
	}
	if _, err := f.f.ReadAt(buf, 0); err != nil {
		return &IOError{Op: "read", Path: f.path, Err: err}
	}

	var sb superblock
	if err := sb.unmarshal(buf); err != nil {
		return &IOError{Op: "open", Path: f.path, Err: err}
	}
	if sb.Version != FormatVersion {
		return &IOError{Op: "open", Path: f.path,
			Err: fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, sb.Version, FormatVersion)}
	}

	idxOff, idxSize := int64(sb.IndexOffset), int64(sb.IndexSize) //nolint:gosec // G115: bounds checked below
	if idxOff < SuperblockSize || idxSize < 0 || idxSize > maxIndexSize || idxOff > size-idxSize {
		return &IOError{Op: "open", Path: f.path,
			Err: fmt.Errorf("%w: index region %d+%d outside file of %d bytes", ErrCorrupt, idxOff, idxSize, size)}
	}

	raw := make([]byte, idxSize)
	if _, err := f.f.ReadAt(raw, idxOff); err != nil {
		return &IOError{Op: "read", Path: f.path, Err: err}
	}
	if sha256.Sum256(raw) != sb.Checksum {
		return &IOError{Op: "open", Path: f.path, Err: fmt.Errorf("%w: index checksum mismatch", ErrCorrupt)}
	}

	var idx index
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&idx); err != nil {
		return &IOError{Op: "open", Path: f.path, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	if err := validateIndex(&idx, idxOff, size); err != nil {
		return &IOError{Op: "open", Path: f.path, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}

	f.sb = sb
	f.size = size
	f.setGroups(idx.Groups)
	return nil
}

func (f *File) setGroups(groups []entry) {
	f.groups = groups
	f.byName = make(map[string]int, len(groups))
	for i, g := range groups {
		f.byName[g.Name] = i
	}
}

// Path returns the file path the container was opened with.
func (f *File) Path() string {
	return f.path
}

// Writable reports whether the container holds the writer lock.
func (f *File) Writable() bool {
	return !f.opts.ReadOnly
}

// HasGroup reports whether a group exists.
func (f *File) HasGroup(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byName[name]
	return ok
}

// Groups returns group names in insertion order.
func (f *File) Groups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.groups))
	for i, g := range f.groups {
		names[i] = g.Name
	}
	return names
}

// Metadata returns the attributes of a group.
func (f *File) Metadata(name string) (Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := f.lookup(name)
	if err != nil {
		return Metadata{}, err
	}
	return e.Metadata, nil
}

// All returns the attributes of every group in insertion order.
func (f *File) All() []Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Metadata, len(f.groups))
	for i, g := range f.groups {
		out[i] = g.Metadata
	}
	return out
}

// ReadPayload reads a group's payload and checks it against the stored digest.
func (f *File) ReadPayload(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	e, err := f.lookup(name)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, e.PayloadSize)
	if _, err := f.f.ReadAt(buf, e.Offset); err != nil && !(errors.Is(err, io.EOF) && e.PayloadSize == 0) {
		return nil, &IOError{Op: "read", Path: f.path, Err: err}
	}
	if e.Digest != "" && Digest(buf) != e.Digest {
		return nil, &IOError{Op: "read", Path: f.path, Err: fmt.Errorf("group %q: %w", name, ErrChecksumMismatch)}
	}
	return buf, nil
}

// Stats reports group count and space usage.
func (f *File) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	live := int64(SuperblockSize) + int64(f.sb.IndexSize) //nolint:gosec // G115: index size bounded on load
	for _, g := range f.groups {
		live += g.PayloadSize
	}
	return Stats{
		Groups:     len(f.groups),
		Generation: f.sb.Generation,
		FileSize:   f.size,
		LiveBytes:  live,
	}
}

// Close releases the writer lock and the file handle.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if !f.opts.ReadOnly {
		_ = unlockFile(f.f)
	}
	if err := f.f.Close(); err != nil {
		return &IOError{Op: "close", Path: f.path, Err: err}
	}
	return nil
}

func (f *File) release() {
	if !f.opts.ReadOnly {
		_ = unlockFile(f.f)
	}
	_ = f.f.Close()
}

func (f *File) lookup(name string) (entry, error) {
	i, ok := f.byName[name]
	if !ok {
		return entry{}, &NotFoundError{Path: f.path, Name: name}
	}
	return f.groups[i], nil
}

func (f *File) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if f.opts.ReadOnly {
		return &IOError{Op: "write", Path: f.path, Err: ErrReadOnly}
	}
	return nil
}

func marshalIndex(groups []entry) ([]byte, error) {
	if groups == nil {
		groups = []entry{}
	}
	data, err := json.Marshal(index{Groups: groups})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	return data, nil
}

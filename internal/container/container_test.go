package container

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{NoSync: true, Now: func() time.Time { return fixedTime }}
}

func newContainer(t *testing.T) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.msc")
	f, err := OpenOrCreate(path, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, path
}

func putGroup(t *testing.T, f *File, name string, payload []byte, overwrite bool) {
	t.Helper()
	w, err := f.CreateGroup(name, overwrite)
	require.NoError(t, err)
	w.SetAttrs(Metadata{Type: "test.Model", ClassRepr: "Model()", FormatVersion: 1})
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Commit())
}

func TestCreateAndReopen(t *testing.T) {
	f, path := newContainer(t)
	assert.Empty(t, f.Groups())

	putGroup(t, f, "default", []byte("payload-one"), false)
	putGroup(t, f, "second", []byte("payload-two"), false)
	require.NoError(t, f.Close())

	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"default", "second"}, r.Groups())
	assert.True(t, r.HasGroup("default"))
	assert.False(t, r.HasGroup("third"))

	meta, err := r.Metadata("default")
	require.NoError(t, err)
	assert.Equal(t, "default", meta.Name)
	assert.Equal(t, "test.Model", meta.Type)
	assert.Equal(t, "Model()", meta.ClassRepr)
	assert.Equal(t, DefaultEncoding, meta.Encoding)
	assert.Equal(t, int64(len("payload-one")), meta.PayloadSize)
	assert.Equal(t, Digest([]byte("payload-one")), meta.Digest)
	assert.True(t, meta.Created.Equal(fixedTime))

	payload, err := r.ReadPayload("second")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-two"), payload)
}

func TestEmptyPayload(t *testing.T) {
	f, _ := newContainer(t)
	putGroup(t, f, "empty", nil, false)

	payload, err := f.ReadPayload("empty")
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.msc"), Options{ReadOnly: true})

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenOrCreateReadOnlyDoesNotCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.msc")
	_, err := OpenOrCreate(path, Options{ReadOnly: true})
	require.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := OpenOrCreate(filepath.Join(t.TempDir(), "nope", "models.msc"), testOptions())
	assert.ErrorIs(t, err, ErrIO)
}

func TestConflict(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "default", []byte("v1"), false)

	_, err := f.CreateGroup("default", false)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "default", ce.Name)
	assert.Equal(t, path, ce.Path)
	assert.ErrorIs(t, err, ErrConflict)

	payload, err := f.ReadPayload("default")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), payload)
}

func TestOverwriteRemovesOldBytes(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "default", []byte("OLD-SECRET-MARKER"), false)
	putGroup(t, f, "other", []byte("keep me"), false)
	putGroup(t, f, "default", []byte("replacement"), true)

	// Overwrite is delete then recreate, so the group moves to the end.
	assert.Equal(t, []string{"other", "default"}, f.Groups())

	payload, err := f.ReadPayload("default")
	require.NoError(t, err)
	assert.Equal(t, []byte("replacement"), payload)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("OLD-SECRET-MARKER")))
	assert.True(t, bytes.Contains(raw, []byte("keep me")))
}

func TestDeleteGroup(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "a", []byte("DELETED-MARKER"), false)
	putGroup(t, f, "b", []byte("bbb"), false)

	require.NoError(t, f.DeleteGroup("a"))
	assert.Equal(t, []string{"b"}, f.Groups())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("DELETED-MARKER")))

	err = f.DeleteGroup("a")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "a", nf.Name)

	payload, err := f.ReadPayload("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), payload)
}

func TestBatch(t *testing.T) {
	t.Run("all or nothing", func(t *testing.T) {
		f, _ := newContainer(t)
		putGroup(t, f, "existing", []byte("x"), false)

		b := f.NewBatch()
		require.NoError(t, b.Put(Metadata{Name: "a"}, []byte("a"), false))
		err := b.Put(Metadata{Name: "existing"}, []byte("y"), false)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 1, b.Len(), "rejected operation must not be staged")

		// Nothing visible before commit.
		assert.Equal(t, []string{"existing"}, f.Groups())

		require.NoError(t, b.Commit())
		assert.Equal(t, []string{"existing", "a"}, f.Groups())
	})

	t.Run("ops apply in order", func(t *testing.T) {
		f, _ := newContainer(t)
		putGroup(t, f, "x", []byte("x"), false)

		b := f.NewBatch()
		require.NoError(t, b.Delete("x"))
		require.NoError(t, b.Put(Metadata{Name: "x"}, []byte("new x"), false))
		require.NoError(t, b.Put(Metadata{Name: "tmp"}, []byte("t"), false))
		require.NoError(t, b.Delete("tmp"))
		require.ErrorIs(t, b.Delete("tmp"), ErrNotFound)
		require.ErrorIs(t, b.Put(Metadata{Name: "x"}, []byte("again"), false), ErrConflict)
		require.NoError(t, b.Commit())

		assert.Equal(t, []string{"x"}, f.Groups())
		payload, err := f.ReadPayload("x")
		require.NoError(t, err)
		assert.Equal(t, []byte("new x"), payload)
	})

	t.Run("empty commit is a no-op", func(t *testing.T) {
		f, _ := newContainer(t)
		before := f.Stats()
		require.NoError(t, f.NewBatch().Commit())
		assert.Equal(t, before, f.Stats())
	})

	t.Run("invalid name", func(t *testing.T) {
		f, _ := newContainer(t)
		err := f.NewBatch().Put(Metadata{Name: ""}, nil, false)
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestGroupWriterAbort(t *testing.T) {
	f, _ := newContainer(t)
	w, err := f.CreateGroup("aborted", false)
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	w.Abort()

	assert.False(t, f.HasGroup("aborted"))
	_, err = w.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Commit(), ErrClosed)
}

func TestInterruptedAppendKeepsPreviousState(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "first", []byte("one"), false)
	require.NoError(t, f.Close())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err = Open(path, testOptions())
	require.NoError(t, err)
	putGroup(t, f, "second", []byte("two"), false)
	require.NoError(t, f.Close())

	// Put the old superblock back: this is the state after payload and index were
	// written but before the superblock update reached the disk.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(after[:SuperblockSize], before[:SuperblockSize])
	require.NoError(t, os.WriteFile(path, after, 0o644))

	r, err := Open(path, testOptions())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"first"}, r.Groups())

	payload, err := r.ReadPayload("first")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), payload)

	// The file remains writable.
	putGroup(t, r, "third", []byte("three"), false)
	assert.Equal(t, []string{"first", "third"}, r.Groups())
}

func TestTrailingGarbageIgnored(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "first", []byte("one"), false)
	require.NoError(t, f.Close())

	af, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = af.Write(bytes.Repeat([]byte{0xAB}, 1000))
	require.NoError(t, err)
	require.NoError(t, af.Close())

	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"first"}, r.Groups())
	st := r.Stats()
	assert.Greater(t, st.FileSize, st.LiveBytes)
}

func TestCorruption(t *testing.T) {
	setup := func(t *testing.T) (string, []byte) {
		t.Helper()
		f, path := newContainer(t)
		putGroup(t, f, "default", []byte("PAYLOAD-BYTES"), false)
		require.NoError(t, f.Close())
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		return path, raw
	}

	t.Run("not a container", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
		_, err := Open(path, Options{ReadOnly: true})
		assert.ErrorIs(t, err, ErrInvalidMagic)
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("wrong magic", func(t *testing.T) {
		path, raw := setup(t)
		copy(raw[0:4], "XXXX")
		require.NoError(t, os.WriteFile(path, raw, 0o644))
		_, err := Open(path, Options{ReadOnly: true})
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("future version", func(t *testing.T) {
		path, raw := setup(t)
		raw[4] = FormatVersion + 1
		require.NoError(t, os.WriteFile(path, raw, 0o644))
		_, err := Open(path, Options{ReadOnly: true})
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("tampered index", func(t *testing.T) {
		path, raw := setup(t)
		raw[len(raw)-2] ^= 0xFF
		require.NoError(t, os.WriteFile(path, raw, 0o644))
		_, err := Open(path, Options{ReadOnly: true})
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("tampered payload", func(t *testing.T) {
		path, raw := setup(t)
		i := bytes.Index(raw, []byte("PAYLOAD-BYTES"))
		require.Positive(t, i)
		raw[i] = 'X'
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		r, err := Open(path, Options{ReadOnly: true})
		require.NoError(t, err, "listing must not read payloads")
		defer r.Close()
		_, err = r.ReadPayload("default")
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		path, raw := setup(t)
		require.NoError(t, os.WriteFile(path, raw[:len(raw)-10], 0o644))
		_, err := Open(path, Options{ReadOnly: true})
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "default", []byte("x"), false)
	require.NoError(t, f.Close())

	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.Writable())

	_, err = r.CreateGroup("new", false)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, r.DeleteGroup("default"), ErrReadOnly)
	_, err = r.Compact()
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestClosed(t *testing.T) {
	f, _ := newContainer(t)
	putGroup(t, f, "default", []byte("x"), false)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "double close is harmless")

	_, err := f.ReadPayload("default")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.CreateGroup("other", false)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCompact(t *testing.T) {
	f, path := newContainer(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		putGroup(t, f, name, []byte(strings.Repeat(name, 100)), false)
	}
	before := f.Stats()
	require.Greater(t, before.FileSize, before.LiveBytes, "each append leaves the previous index behind")

	reclaimed, err := f.Compact()
	require.NoError(t, err)
	assert.Positive(t, reclaimed)

	after := f.Stats()
	assert.Equal(t, before.FileSize-reclaimed, after.FileSize)
	assert.Equal(t, []string{"a", "b", "c", "d"}, f.Groups())
	assert.Greater(t, after.Generation, before.Generation)

	for _, name := range f.Groups() {
		payload, err := f.ReadPayload(name)
		require.NoError(t, err)
		assert.Equal(t, []byte(strings.Repeat(name, 100)), payload)
	}

	// The compacted file is what a fresh reader sees.
	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, f.Groups(), r.Groups())
	assert.Equal(t, after.FileSize, r.Stats().FileSize)
}

func TestReaderKeepsSnapshotAcrossRewrite(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "a", []byte("aaa"), false)
	putGroup(t, f, "b", []byte("bbb"), false)

	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, f.DeleteGroup("a"))

	payload, err := r.ReadPayload("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), payload)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"default", true},
		{"model v2", true},
		{"pipeline@upstream1", true},
		{"métrique", true},
		{"", false},
		{strings.Repeat("x", MaxNameLength+1), false},
		{"bad\nname", false},
		{"nul\x00name", false},
		{"a/b", false},
		{`a\b`, false},
		{"..", false},
		{string([]byte{0xff, 0xfe}), false},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.valid {
			assert.NoError(t, err, "name %q", tt.name)
			continue
		}
		var ne *NameError
		if assert.Error(t, err, "name %q", tt.name) {
			assert.True(t, errors.As(err, &ne))
			assert.ErrorIs(t, err, ErrInvalidName)
		}
	}
}

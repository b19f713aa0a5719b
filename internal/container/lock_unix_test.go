//go:build unix

package container

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondWriterIsLockedOut(t *testing.T) {
	f, path := newContainer(t)

	_, err := Open(path, testOptions())
	require.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, err, ErrIO)

	// Readers never wait on the writer.
	r, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	require.NoError(t, f.Close())
	w, err := Open(path, testOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestLockSurvivesRewrite(t *testing.T) {
	f, path := newContainer(t)
	putGroup(t, f, "a", []byte("a"), false)
	require.NoError(t, f.DeleteGroup("a"))

	_, err := Open(path, testOptions())
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRewriteLocksNewFileBeforeRename(t *testing.T) {
	f, _ := newContainer(t)
	putGroup(t, f, "a", []byte("a"), false)

	var lockErr error
	beforeRename = func(tmpName string) {
		other, err := os.OpenFile(tmpName, os.O_RDWR, 0)
		if err != nil {
			lockErr = err
			return
		}
		defer other.Close()
		lockErr = lockFile(other)
	}
	t.Cleanup(func() { beforeRename = nil })

	require.NoError(t, f.DeleteGroup("a"))
	assert.ErrorIs(t, lockErr, ErrLocked)
}

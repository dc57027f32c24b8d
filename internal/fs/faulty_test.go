package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyFSWriteLimit(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("target", Fault{FailWriteAfter: 5})

	path := filepath.Join(dir, "target.bin")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	require.NoError(t, err)

	// The partial prefix goes through, then the fault fires.
	n, err := f.Write([]byte("0123456789"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 5, n)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "01234", string(data))
}

func TestFaultyFSSync(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("target", Fault{FailWriteAfter: -1, FailOnSync: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "target.bin"), os.O_CREATE|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Sync(), ErrInjected)
}

func TestFaultyFSTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	ffs := NewFaultyFS(nil)
	ffs.AddRule("target", Fault{FailWriteAfter: -1, FailOnTruncate: true})

	assert.ErrorIs(t, ffs.Truncate(path, 0), ErrInjected)

	ffs.ClearRule("target")
	require.NoError(t, ffs.Truncate(path, 0))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size())
}

func TestFaultyFSUnmatchedPassThrough(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("other", Fault{FailWriteAfter: 0})

	f, err := ffs.OpenFile(filepath.Join(dir, "clean.bin"), os.O_CREATE|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("payload"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
}

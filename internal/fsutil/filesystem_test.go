package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_WriteFileCreatesParents(t *testing.T) {
	fsys := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "out", "medium", "trials.csv")

	err := WriteFile(fsys, path, func(w io.Writer) error {
		_, err := io.WriteString(w, "row,compression\n")
		return err
	})
	require.NoError(t, err)
	assert.True(t, fsys.Exists(path))

	r, err := fsys.Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "row,compression\n", string(data))
}

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}
	assert.True(t, fsys.Exists("filesystem.go"))
	assert.False(t, fsys.Exists("nonexistent_file_xyz.go"))
}

func TestMemoryFileSystem_RoundTrip(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.Put("in/slow.csv", "participant_id,sim_time\n")

	r, err := mfs.Open("in/slow.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "participant_id,sim_time\n", string(data))

	_, err = mfs.Open("in/missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_WriteVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	w, err := mfs.Create("out/summary.json")
	require.NoError(t, err)

	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	got, _ := mfs.Get("out/summary.json")
	assert.Empty(t, got)

	require.NoError(t, w.Close())
	got, ok := mfs.Get("out/summary.json")
	require.True(t, ok)
	assert.Equal(t, "{}", got)
}

func TestMemoryFileSystem_WriteFileAndList(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"out/b.csv", "out/a.csv", "other/c.csv"} {
		require.NoError(t, WriteFile(mfs, name, func(w io.Writer) error {
			_, err := io.WriteString(w, name)
			return err
		}))
	}

	assert.Equal(t, []string{"out/a.csv", "out/b.csv"}, mfs.Files("out/"))
	assert.True(t, mfs.Exists("out"))
	assert.True(t, mfs.Exists("other"))
}

func TestWriteFile_PropagatesWriterError(t *testing.T) {
	mfs := NewMemoryFileSystem()
	boom := errors.New("boom")
	err := WriteFile(mfs, "x.csv", func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}

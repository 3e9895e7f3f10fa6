package file

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskStore(t *testing.T) (*DiskStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewDiskStore(fs, testRoot)
	require.NoError(t, err)
	return store, fs
}

func TestDiskStoreStageCommitOpen(t *testing.T) {
	store, fs := newDiskStore(t)
	ctx := context.Background()

	staged, err := store.Stage(ctx, "id-note.txt", strings.NewReader("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "id-note.txt", staged.Name)
	assert.Equal(t, ".staging/id-note.txt", staged.TempKey)
	assert.Equal(t, testRoot+"/id-note.txt", staged.Location)
	assert.EqualValues(t, 5, staged.Size)

	blobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.True(t, blobs[0].Staged)
	assert.Equal(t, "id-note.txt", blobs[0].Name)

	require.NoError(t, store.Commit(ctx, staged))
	exists, _ := afero.Exists(fs, testRoot+"/.staging/id-note.txt")
	assert.False(t, exists)

	blobs, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.False(t, blobs[0].Staged)
	assert.Equal(t, "id-note.txt", blobs[0].Key)

	rc, err := store.Open(ctx, "id-note.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDiskStoreCommitNeverOverwrites(t *testing.T) {
	store, fs := newDiskStore(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(fs, testRoot+"/taken.txt", []byte("original"), 0o640))

	staged, err := store.Stage(ctx, "taken.txt", strings.NewReader("new"), "text/plain")
	require.NoError(t, err)
	require.Error(t, store.Commit(ctx, staged))

	data, err := afero.ReadFile(fs, testRoot+"/taken.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestDiskStoreStageFailureLeavesNothing(t *testing.T) {
	store, _ := newDiskStore(t)

	_, err := store.Stage(context.Background(), "broken.txt", io.MultiReader(strings.NewReader("abc"), failingReader{}), "text/plain")
	require.Error(t, err)

	blobs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestDiskStorePartSuffixIsNotStaged(t *testing.T) {
	store, _ := newDiskStore(t)
	ctx := context.Background()

	staged, err := store.Stage(ctx, "id-backup.part", strings.NewReader("data"), "text/plain")
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, staged))

	blobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.False(t, blobs[0].Staged)
}

func TestDiskStoreStageHonoursCancellation(t *testing.T) {
	store, _ := newDiskStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Stage(ctx, "late.txt", strings.NewReader("abc"), "text/plain")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDiskStoreRejectsPathsOutsideRoot(t *testing.T) {
	store, fs := newDiskStore(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/passwd", []byte("root"), 0o644))
	ctx := context.Background()

	for _, name := range []string{"/etc/passwd", "../../etc/passwd", ".staging/x", ""} {
		_, err := store.Open(ctx, name)
		require.ErrorIs(t, err, os.ErrNotExist, "name %q", name)
	}

	require.Error(t, store.Remove(ctx, "../../etc/passwd"))
	exists, _ := afero.Exists(fs, "/etc/passwd")
	assert.True(t, exists)
}

func TestDiskStoreRemoveMissingIsNoop(t *testing.T) {
	store, _ := newDiskStore(t)
	require.NoError(t, store.Remove(context.Background(), "gone.txt"))
}

func TestDiskStorePing(t *testing.T) {
	store, fs := newDiskStore(t)
	require.NoError(t, store.Ping(context.Background()))

	require.NoError(t, fs.RemoveAll(testRoot))
	require.Error(t, store.Ping(context.Background()))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("client went away")
}

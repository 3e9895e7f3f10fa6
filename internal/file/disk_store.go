package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// stagingDir holds uploads that are not committed yet. Stored names never
// start with a dot, so no committed blob can land here.
const stagingDir = ".staging"

// DiskStore keeps blobs as flat files under a root directory.
type DiskStore struct {
	fs   afero.Fs
	root string
}

// NewDiskStore creates the root and staging directories if needed.
func NewDiskStore(fs afero.Fs, root string) (*DiskStore, error) {
	root = filepath.Clean(root)
	if err := fs.MkdirAll(filepath.Join(root, stagingDir), 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &DiskStore{fs: fs, root: root}, nil
}

// Stage streams src into <root>/.staging/<name> and fsyncs it.
func (s *DiskStore) Stage(ctx context.Context, name string, src io.Reader, _ string) (StagedBlob, error) {
	if !validStoredName(name) {
		return StagedBlob{}, fmt.Errorf("stage %q: invalid stored name", name)
	}
	tmpKey := path.Join(stagingDir, name)
	tmpPath := s.resolve(tmpKey)

	f, err := s.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return StagedBlob{}, fmt.Errorf("create staged file: %w", err)
	}

	size, err := io.Copy(f, contextReader{ctx: ctx, r: src})
	if err != nil {
		f.Close()
		_ = s.fs.Remove(tmpPath)
		return StagedBlob{}, fmt.Errorf("write staged file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		_ = s.fs.Remove(tmpPath)
		return StagedBlob{}, fmt.Errorf("sync staged file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return StagedBlob{}, fmt.Errorf("close staged file: %w", err)
	}

	return StagedBlob{Name: name, TempKey: tmpKey, Location: s.resolve(name), Size: size}, nil
}

// Commit renames the staged file into place. An existing file under the stored name is never replaced.
func (s *DiskStore) Commit(_ context.Context, blob StagedBlob) error {
	finalPath := s.resolve(blob.Name)
	if _, err := s.fs.Stat(finalPath); err == nil {
		return fmt.Errorf("commit %s: stored name already in use", blob.Name)
	}
	if err := s.fs.Rename(s.resolve(blob.TempKey), finalPath); err != nil {
		return fmt.Errorf("commit %s: %w", blob.Name, err)
	}
	return nil
}

// Open returns a reader for a committed blob.
func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validStoredName(name) {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	f, err := s.fs.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Remove deletes a blob by store-relative key; a missing file is not an error.
func (s *DiskStore) Remove(_ context.Context, key string) error {
	p := s.resolve(key)
	if !s.contains(p) {
		return fmt.Errorf("remove %s: outside storage root", key)
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// List returns committed files under the root and staged files under .staging.
func (s *DiskStore) List(_ context.Context) ([]BlobInfo, error) {
	committed, err := s.listDir("", false)
	if err != nil {
		return nil, err
	}
	staged, err := s.listDir(stagingDir, true)
	if err != nil {
		return nil, err
	}
	return append(committed, staged...), nil
}

func (s *DiskStore) listDir(dir string, staged bool) ([]BlobInfo, error) {
	entries, err := afero.ReadDir(s.fs, s.resolve(dir))
	if err != nil {
		if staged && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		blobs = append(blobs, BlobInfo{
			Key:     path.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    entry.Size(),
			ModTime: entry.ModTime(),
			Staged:  staged,
		})
	}
	return blobs, nil
}

// Ping checks that the root directory is still reachable.
func (s *DiskStore) Ping(_ context.Context) error {
	info, err := s.fs.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

func (s *DiskStore) resolve(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *DiskStore) contains(p string) bool {
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// validStoredName accepts a single path element that cannot address the staging area.
func validStoredName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

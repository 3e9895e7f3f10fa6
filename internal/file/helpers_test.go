package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/abduss/filedrop/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRoot = "/data/uploads"

// fakeRepo is an in-memory metadataStore.
type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]Record
	createErr error
	listErr   error
	getErr    error
	getCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]Record)}
}

func (f *fakeRepo) Create(ctx context.Context, rec Record) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Record{}, f.createErr
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	list := make([]Record, 0, len(f.records))
	for _, rec := range f.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return Record{}, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	delete(f.records, id)
	return nil
}

// failingCommitStore wraps a BlobStore and fails every Commit.
type failingCommitStore struct {
	BlobStore
}

func (s failingCommitStore) Commit(ctx context.Context, blob StagedBlob) error {
	return errors.New("rename failed")
}

type testEnv struct {
	fs      afero.Fs
	repo    *fakeRepo
	blobs   *DiskStore
	service *Service
}

func newTestEnv(t *testing.T, maxBytes int64) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	blobs, err := NewDiskStore(fs, testRoot)
	require.NoError(t, err)

	repo := newFakeRepo()
	types := NewContentTypes(config.DefaultAllowedTypes, config.DefaultViewableTypes)
	service := NewService(repo, blobs, types, Options{MaxUploadBytes: maxBytes})

	// strictly increasing clock so listing order is deterministic
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var tick int
	service.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return &testEnv{fs: fs, repo: repo, blobs: blobs, service: service}
}

// storedFiles lists blob keys under the storage root, staged ones included.
func (e *testEnv) storedFiles(t *testing.T) []string {
	t.Helper()
	blobs, err := e.blobs.List(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		keys = append(keys, blob.Key)
	}
	return keys
}

// buildFileHeader builds a parsed multipart file part with an explicit Content-Type.
func buildFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body, formType := multipartBody(t, formField, filename, contentType, content)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", formType)
	require.NoError(t, req.ParseMultipartForm(int64(len(content))+1024))

	return req.MultipartForm.File[formField][0]
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writeFilePart(t, writer, field, filename, contentType, content)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func writeFilePart(t *testing.T, writer *multipart.Writer, field, filename, contentType string, content []byte) {
	t.Helper()
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
}

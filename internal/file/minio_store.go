package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
)

const stagingPrefix = "staging/"

// objectClient is the subset of the MinIO API the store relies on.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// minioClient adapts *minio.Client so GetObject returns an io.ReadCloser.
type minioClient struct {
	*minio.Client
}

func (c minioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// MinIOStore keeps blobs as objects in one bucket. Staged objects live under staging/.
type MinIOStore struct {
	client objectClient
	bucket string
}

// NewMinIOStore constructs a store backed by a MinIO bucket.
func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return newMinIOStore(minioClient{client}, bucket)
}

func newMinIOStore(client objectClient, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

// Stage uploads src to staging/<name>.
func (s *MinIOStore) Stage(ctx context.Context, name string, src io.Reader, contentType string) (StagedBlob, error) {
	tmp := stagingPrefix + name
	info, err := s.client.PutObject(ctx, s.bucket, tmp, contentReader(ctx, src), -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return StagedBlob{}, fmt.Errorf("store staged object: %w", err)
	}
	return StagedBlob{Name: name, TempKey: tmp, Location: name, Size: info.Size}, nil
}

// Commit copies the staged object to its final key and drops the staging copy.
func (s *MinIOStore) Commit(ctx context.Context, blob StagedBlob) error {
	if _, err := s.client.StatObject(ctx, s.bucket, blob.Name, minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("commit %s: stored name already in use", blob.Name)
	} else if !isNoSuchKey(err) {
		return fmt.Errorf("commit %s: %w", blob.Name, err)
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: blob.Name},
		minio.CopySrcOptions{Bucket: s.bucket, Object: blob.TempKey},
	)
	if err != nil {
		return fmt.Errorf("commit %s: %w", blob.Name, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, blob.TempKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove staged object: %w", err)
	}
	return nil
}

// Open returns a reader for a committed object.
func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" || strings.HasPrefix(name, stagingPrefix) {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	return obj, nil
}

// Remove deletes an object. MinIO treats missing keys as success.
func (s *MinIOStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// List returns every object in the bucket.
func (s *MinIOStore) List(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		blobs = append(blobs, BlobInfo{
			Key:     obj.Key,
			Name:    strings.TrimPrefix(obj.Key, stagingPrefix),
			Size:    obj.Size,
			ModTime: obj.LastModified,
			Staged:  strings.HasPrefix(obj.Key, stagingPrefix),
		})
	}
	return blobs, nil
}

// Ping checks that the bucket is reachable.
func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func contentReader(ctx context.Context, src io.Reader) io.Reader {
	return contextReader{ctx: ctx, r: src}
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

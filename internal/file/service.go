package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/abduss/filedrop/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type metadataStore interface {
	Create(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Options tunes a Service.
type Options struct {
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Service implements ingest, listing and retrieval of uploaded files.
type Service struct {
	repo      metadataStore
	blobs     BlobStore
	types     *ContentTypes
	placer    *Placer
	maxUpload int64
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// NewService constructs a file service.
func NewService(repo metadataStore, blobs BlobStore, types *ContentTypes, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		blobs:     blobs,
		types:     types,
		placer:    NewPlacer(blobs, types, opts.MaxUploadBytes),
		maxUpload: opts.MaxUploadBytes,
		logger:    logger.With(zap.String("component", "file_service")),
		tracer:    otel.Tracer("github.com/abduss/filedrop/internal/file"),
		now:       time.Now,
		newID:     newRecordID,
	}
}

// MaxUploadBytes returns the configured per-file limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUpload
}

// Ingest stores an uploaded file and its metadata record.
//
// Bytes are staged first, the record is written, and only then is the blob
// committed. A failed record write discards the staged bytes; a failed
// commit deletes the record again.
func (s *Service) Ingest(ctx context.Context, fileHeader *multipart.FileHeader) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "file.Ingest")
	defer span.End()

	rec, err := s.ingest(ctx, fileHeader)
	metrics.ObserveUpload(uploadResult(err), rec.SizeBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Record{}, err
	}

	span.SetAttributes(
		attribute.String("file.id", rec.ID),
		attribute.String("file.content_type", rec.ContentType),
		attribute.Int64("file.size", rec.SizeBytes),
	)
	return rec, nil
}

func (s *Service) ingest(ctx context.Context, fileHeader *multipart.FileHeader) (Record, error) {
	if fileHeader == nil {
		return Record{}, ErrNoFile
	}

	src, err := fileHeader.Open()
	if err != nil {
		return Record{}, fmt.Errorf("%w: open upload: %w", ErrStorageUnavailable, err)
	}
	defer src.Close()

	originalName := cleanOriginalName(fileHeader.Filename)
	placement, err := s.placer.Place(ctx, src, originalName, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return Record{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	rec := Record{
		ID:           s.newID(),
		OriginalName: originalName,
		StoredName:   placement.StoredName,
		ContentType:  placement.ContentType,
		SizeBytes:    placement.SizeBytes,
		StoragePath:  placement.StoragePath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.discard(ctx, placement)
		return Record{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := s.placer.Finalize(ctx, placement); err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if delErr := s.repo.Delete(cleanupCtx, stored.ID); delErr != nil {
			s.logger.Error("remove record after failed commit",
				zap.String("id", stored.ID), zap.Error(delErr))
		}
		s.discard(ctx, placement)
		return Record{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.logger.Info("file stored",
		zap.String("id", stored.ID),
		zap.String("stored_name", stored.StoredName),
		zap.String("content_type", stored.ContentType),
		zap.Int64("size", stored.SizeBytes),
	)
	return stored, nil
}

// List returns all records, newest first.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Resolve looks up a record and opens its bytes. In ModeView the record's
// content type must be viewable. The caller closes the returned reader.
func (s *Service) Resolve(ctx context.Context, id string, mode Mode) (Record, io.ReadCloser, error) {
	ctx, span := s.tracer.Start(ctx, "file.Resolve", trace.WithAttributes(
		attribute.String("file.id", id),
		attribute.String("file.mode", mode.String()),
	))
	defer span.End()

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Record{}, nil, ErrNotFound
	}

	rec, err := s.repo.Get(ctx, parsed.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, nil, ErrNotFound
		}
		span.RecordError(err)
		return Record{}, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if mode == ModeView && !s.types.Viewable(rec.ContentType) {
		return Record{}, nil, ErrUnsupportedForView
	}

	body, err := s.blobs.Open(ctx, rec.StoredName)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("open blob", zap.String("id", rec.ID), zap.Error(err))
		return Record{}, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return rec, body, nil
}

func (s *Service) discard(ctx context.Context, placement Placement) {
	if err := s.placer.Discard(context.WithoutCancel(ctx), placement); err != nil {
		s.logger.Error("discard staged blob",
			zap.String("stored_name", placement.StoredName), zap.Error(err))
	}
}

func cleanOriginalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}

func uploadResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoFile):
		return "no_file"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	default:
		return "error"
	}
}

// newRecordID returns a time-ordered UUIDv7 so id order follows insertion order
// within one millisecond.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

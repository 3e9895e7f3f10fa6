package file

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/filedrop/internal/metrics"
	"go.uber.org/zap"
)

// MinSweepAge is the smallest OlderThan a sweep accepts. Younger staged
// blobs may still be written by in-flight uploads.
const MinSweepAge = time.Minute

// SweepOptions controls a sweep run.
type SweepOptions struct {
	// OlderThan protects blobs written recently, including in-flight uploads.
	OlderThan time.Duration
	DryRun    bool
}

// Validate rejects ages that would race with in-flight uploads.
func (o SweepOptions) Validate() error {
	if o.OlderThan < MinSweepAge {
		return fmt.Errorf("sweep age %s is below the minimum of %s", o.OlderThan, MinSweepAge)
	}
	return nil
}

// SweepResult summarizes a sweep run.
type SweepResult struct {
	Staged   int
	Orphaned int
	Removed  int
	Failed   int
}

// Sweeper removes staged leftovers and blobs that no record points to.
type Sweeper struct {
	repo   metadataStore
	blobs  BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper constructs a sweeper.
func NewSweeper(repo metadataStore, blobs BlobStore, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		repo:   repo,
		blobs:  blobs,
		logger: logger.With(zap.String("component", "sweeper")),
		now:    time.Now,
	}
}

// Run performs one pass over the blob store.
func (s *Sweeper) Run(ctx context.Context, opts SweepOptions) (SweepResult, error) {
	if err := opts.Validate(); err != nil {
		return SweepResult{}, err
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("%w: list records: %w", ErrStorageUnavailable, err)
	}
	referenced := make(map[string]struct{}, len(records))
	for _, rec := range records {
		referenced[rec.StoredName] = struct{}{}
	}

	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("%w: list blobs: %w", ErrStorageUnavailable, err)
	}

	var result SweepResult
	removed := map[string]int{}
	cutoff := s.now().Add(-opts.OlderThan)

	for _, blob := range blobs {
		if blob.ModTime.After(cutoff) {
			continue
		}
		// a record may point at a staged blob while its ingest is still committing
		if _, ok := referenced[blob.Name]; ok {
			continue
		}

		kind := "orphaned"
		if blob.Staged {
			kind = "staged"
			result.Staged++
		} else {
			result.Orphaned++
		}

		if opts.DryRun {
			s.logger.Info("would remove blob", zap.String("key", blob.Key), zap.String("kind", kind))
			continue
		}

		if err := s.blobs.Remove(ctx, blob.Key); err != nil {
			result.Failed++
			s.logger.Error("remove blob", zap.String("key", blob.Key), zap.Error(err))
			continue
		}
		result.Removed++
		removed[kind]++
		s.logger.Info("removed blob", zap.String("key", blob.Key), zap.String("kind", kind), zap.Int64("size", blob.Size))
	}

	for kind, n := range removed {
		metrics.ObserveSweep(kind, n)
	}
	return result, nil
}

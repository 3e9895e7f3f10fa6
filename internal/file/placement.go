package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxStoredBaseBytes keeps "<uuid>-<base>" within the common 255-byte file name limit.
const maxStoredBaseBytes = 255 - len("00000000-0000-0000-0000-000000000000-")

// Placement describes where an upload's bytes were staged.
type Placement struct {
	StoredName  string
	StoragePath string
	ContentType string
	SizeBytes   int64

	staged StagedBlob
}

// Placer validates an upload's type, names it and stages its bytes.
type Placer struct {
	blobs    BlobStore
	types    *ContentTypes
	maxBytes int64
	newName  func(originalName string) string
}

// NewPlacer builds a placer. maxBytes <= 0 disables the size limit.
func NewPlacer(blobs BlobStore, types *ContentTypes, maxBytes int64) *Placer {
	return &Placer{
		blobs:    blobs,
		types:    types,
		maxBytes: maxBytes,
		newName:  storedName,
	}
}

// Place checks the declared type against the allow-list, then stages the
// bytes under a generated name. Nothing is written for a rejected type.
func (p *Placer) Place(ctx context.Context, src io.Reader, originalName, declaredType string) (Placement, error) {
	contentType := NormalizeType(declaredType)
	if needsSniff(declaredType) {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(src, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return Placement{}, fmt.Errorf("%w: read upload: %w", ErrStorageUnavailable, err)
		}
		head = head[:n]
		contentType = sniffType(head)
		src = io.MultiReader(bytes.NewReader(head), src)
	}

	if !p.types.Allowed(contentType) {
		return Placement{}, ErrUnsupportedType
	}

	limited := &sizeLimiter{r: src, remaining: p.maxBytes, enabled: p.maxBytes > 0}
	name := p.newName(originalName)

	staged, err := p.blobs.Stage(ctx, name, limited, contentType)
	if limited.exceeded {
		if err == nil {
			_ = p.blobs.Remove(context.WithoutCancel(ctx), staged.TempKey)
		}
		return Placement{}, ErrFileTooLarge
	}
	if err != nil {
		return Placement{}, fmt.Errorf("%w: stage blob: %w", ErrStorageUnavailable, err)
	}

	return Placement{
		StoredName:  name,
		StoragePath: staged.Location,
		ContentType: contentType,
		SizeBytes:   staged.Size,
		staged:      staged,
	}, nil
}

// Finalize makes the staged bytes visible at the placement's storage path.
func (p *Placer) Finalize(ctx context.Context, pl Placement) error {
	return p.blobs.Commit(ctx, pl.staged)
}

// Discard removes staged bytes that will never be committed.
func (p *Placer) Discard(ctx context.Context, pl Placement) error {
	return p.blobs.Remove(ctx, pl.staged.TempKey)
}

// storedName returns "<uuid>-<sanitized original name>".
func storedName(originalName string) string {
	return uuid.NewString() + "-" + sanitizeName(originalName)
}

// sanitizeName keeps letters, digits, dot, dash and underscore from the base name,
// truncated on a rune boundary to maxStoredBaseBytes.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			r = '_'
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
		default:
			r = '_'
		}
		if b.Len()+utf8.RuneLen(r) > maxStoredBaseBytes {
			break
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}

// sizeLimiter fails the read once more than remaining bytes were consumed.
type sizeLimiter struct {
	r         io.Reader
	remaining int64
	enabled   bool
	exceeded  bool
}

func (l *sizeLimiter) Read(p []byte) (int, error) {
	if !l.enabled {
		return l.r.Read(p)
	}
	if l.exceeded {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}

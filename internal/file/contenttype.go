package file

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// sniffLen is how many leading bytes are inspected when the client sends no usable type.
const sniffLen = 3072

var typeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"text/json":   "application/json",
}

// ContentTypes classifies media types for ingest and inline viewing.
// Both decisions use the normalized declared MIME type.
type ContentTypes struct {
	allowed  map[string]struct{}
	viewable map[string]struct{}
}

// NewContentTypes builds the classifier from the configured allow-lists.
func NewContentTypes(allowed, viewable []string) *ContentTypes {
	return &ContentTypes{
		allowed:  toSet(allowed),
		viewable: toSet(viewable),
	}
}

// Allowed reports whether ct may be ingested.
func (c *ContentTypes) Allowed(ct string) bool {
	_, ok := c.allowed[NormalizeType(ct)]
	return ok
}

// Viewable reports whether ct may be served inline.
func (c *ContentTypes) Viewable(ct string) bool {
	_, ok := c.viewable[NormalizeType(ct)]
	return ok
}

// NormalizeType lower-cases a media type, drops parameters and folds aliases.
func NormalizeType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	if alias, ok := typeAliases[mediaType]; ok {
		return alias
	}
	return mediaType
}

// needsSniff reports whether the declared type carries no information.
func needsSniff(ct string) bool {
	ct = NormalizeType(ct)
	return ct == "" || ct == octetStream
}

// sniffType detects the media type from leading bytes.
func sniffType(head []byte) string {
	return NormalizeType(mimetype.Detect(head).String())
}

func toSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		if n := NormalizeType(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

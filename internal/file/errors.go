package file

import "errors"

var (
	// ErrNoFile signals that the upload request carried no file part.
	ErrNoFile = errors.New("no file uploaded")
	// ErrMultipleFiles signals more than one part in the file field.
	ErrMultipleFiles = errors.New("exactly one file is allowed per upload")
	// ErrUnsupportedType is returned when the content type is not allow-listed.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotFound signals that no record matches the identifier.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedForView is returned when a record cannot be rendered inline.
	ErrUnsupportedForView = errors.New("unsupported format for viewing")
	// ErrStorageUnavailable wraps disk, object store and metadata store failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

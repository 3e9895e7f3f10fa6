package file

import "time"

// Record is the stored metadata for one uploaded file.
// JSON names follow the wire format the browser client already consumes.
type Record struct {
	ID           string    `json:"_id" bson:"_id"`
	OriginalName string    `json:"originalname" bson:"originalname"`
	StoredName   string    `json:"filename" bson:"filename"`
	ContentType  string    `json:"mimetype" bson:"mimetype"`
	SizeBytes    int64     `json:"size" bson:"size"`
	StoragePath  string    `json:"-" bson:"path"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Mode selects how Resolve hands bytes back to the caller.
type Mode int

const (
	// ModeDownload forces an attachment regardless of content type.
	ModeDownload Mode = iota
	// ModeView renders inline, only for viewable content types.
	ModeView
)

func (m Mode) String() string {
	if m == ModeView {
		return "view"
	}
	return "download"
}

package complaint

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is the metadata row for a stored evidence file.
type Attachment struct {
	ID           uuid.UUID `json:"id"`
	ComplaintID  uuid.UUID `json:"complaintId"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	RelativePath string    `json:"relativePath"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

package complaint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of a history entry.
type Action string

const (
	ActionCreated              Action = "CREATED"
	ActionStatusChanged        Action = "STATUS_CHANGED"
	ActionFieldsUpdated        Action = "FIELDS_UPDATED"
	ActionAttachmentAdded      Action = "ATTACHMENT_ADDED"
	ActionAttachmentRemoved    Action = "ATTACHMENT_REMOVED"
	ActionLocked               Action = "LOCKED"
	ActionUnlocked             Action = "UNLOCKED"
	ActionInfoRequested        Action = "INFO_REQUESTED"
	ActionInfoProvided         Action = "INFO_PROVIDED"
	ActionInfoRequestCancelled Action = "INFO_REQUEST_CANCELLED"
	ActionDeleted              Action = "DELETED"
)

// HistoryEntry is one immutable record in a complaint's audit trail.
// Sequence is strictly increasing per complaint and is the only ordering key.
type HistoryEntry struct {
	ID          uuid.UUID       `json:"id"`
	ComplaintID uuid.UUID       `json:"complaintId"`
	Sequence    int64           `json:"sequence"`
	Action      Action          `json:"action"`
	FieldName   *string         `json:"fieldName,omitempty"`
	OldValue    *string         `json:"oldValue,omitempty"`
	NewValue    *string         `json:"newValue,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Actor       Actor           `json:"actor"`
	Signature   []byte          `json:"signature,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MetadataMap decodes the entry metadata; an empty payload yields an empty map.
func (h *HistoryEntry) MetadataMap() (map[string]any, error) {
	out := map[string]any{}
	if len(h.Metadata) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(h.Metadata, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package complaint

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows complaint listings.
type Filter struct {
	Status             *Status
	CitizenID          *string
	AssignedEmployeeID *string
	Agency             *string
}

// Change is everything one command writes. A repository applies it in a
// single atomic step guarded by ExpectedVersion.
type Change struct {
	Complaint        *Complaint
	ExpectedVersion  int64
	History          []*HistoryEntry
	Request          *InformationRequest
	NewRequest       bool
	AddAttachment    *Attachment
	RemoveAttachment *uuid.UUID
}

// Repository defines persistence for complaints and their children.
// Reads return nil, nil when the row does not exist.
type Repository interface {
	Create(ctx context.Context, c *Complaint, history []*HistoryEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Complaint, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Complaint, error)
	// Commit fails with ErrConcurrentModification when the stored version is
	// not ExpectedVersion, and with ErrDuplicateRequest when NewRequest would
	// leave two pending requests.
	Commit(ctx context.Context, change *Change) error
	// Delete removes the complaint with its attachments and requests and
	// appends tombstone to its history. History entries outlive the complaint.
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64, tombstone *HistoryEntry) error
	// ListHistory also serves the retained history of a deleted complaint.
	ListHistory(ctx context.Context, complaintID uuid.UUID) ([]*HistoryEntry, error)
	ListAttachments(ctx context.Context, complaintID uuid.UUID) ([]*Attachment, error)
	GetAttachment(ctx context.Context, complaintID, attachmentID uuid.UUID) (*Attachment, error)
	ListInformationRequests(ctx context.Context, complaintID uuid.UUID) ([]*InformationRequest, error)
	GetInformationRequest(ctx context.Context, complaintID, requestID uuid.UUID) (*InformationRequest, error)
	GetPendingInformationRequest(ctx context.Context, complaintID uuid.UUID) (*InformationRequest, error)
}

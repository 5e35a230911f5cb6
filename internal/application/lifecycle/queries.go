package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/application/history"
	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	return o.load(ctx, id)
}

func (o *Orchestrator) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*complaint.Complaint, error) {
	c, err := o.repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	if c == nil {
		return nil, complaint.NewNotFoundError("complaint", trackingNumber)
	}
	return c, nil
}

func (o *Orchestrator) List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]*complaint.Complaint, error) {
	return o.repo.List(ctx, filter, limit, offset)
}

// History returns the complaint's entries in sequence order. The history of
// a deleted complaint stays readable and ends with its DELETED entry.
func (o *Orchestrator) History(ctx context.Context, id uuid.UUID) ([]*complaint.HistoryEntry, error) {
	entries, err := o.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(entries) == 0 {
		if _, err := o.load(ctx, id); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (o *Orchestrator) Attachments(ctx context.Context, id uuid.UUID) ([]*complaint.Attachment, error) {
	if _, err := o.load(ctx, id); err != nil {
		return nil, err
	}
	return o.repo.ListAttachments(ctx, id)
}

func (o *Orchestrator) InformationRequests(ctx context.Context, id uuid.UUID) ([]*complaint.InformationRequest, error) {
	if _, err := o.load(ctx, id); err != nil {
		return nil, err
	}
	return o.repo.ListInformationRequests(ctx, id)
}

// AttachmentContent is a stored file whose checksum has been verified.
type AttachmentContent struct {
	Attachment *complaint.Attachment
	Data       []byte
}

// LoadAttachment reads a file and checks it against the recorded checksum.
func (o *Orchestrator) LoadAttachment(ctx context.Context, complaintID, attachmentID uuid.UUID) (*AttachmentContent, error) {
	att, err := o.repo.GetAttachment(ctx, complaintID, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("load attachment: %w", err)
	}
	if att == nil {
		return nil, complaint.NewNotFoundError("attachment", attachmentID.String())
	}
	rc, err := o.store.Load(ctx, att.RelativePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, complaint.NewStorageError("read attachment", err)
	}
	ok, err := attachment.Verify(att.Checksum, bytes.NewReader(data))
	if err != nil {
		return nil, complaint.NewStorageError("attachment checksum", err)
	}
	if !ok {
		o.logger.Error().
			Str("attachmentId", att.ID.String()).
			Str("checksum", att.Checksum).
			Msg("attachment checksum mismatch")
		return nil, complaint.NewStorageError(
			fmt.Sprintf("attachment %s failed checksum verification", att.ID), nil)
	}
	return &AttachmentContent{Attachment: att, Data: data}, nil
}

// VerifyHistory checks sequence continuity and entry signatures.
func (o *Orchestrator) VerifyHistory(ctx context.Context, id uuid.UUID) (*history.Report, error) {
	entries, err := o.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.recorder.Verify(entries)
}

// Replay reconstructs the complaint state after each history entry.
func (o *Orchestrator) Replay(ctx context.Context, id uuid.UUID) ([]history.Snapshot, error) {
	entries, err := o.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return history.Replay(entries)
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

type record struct {
	complaint   *complaint.Complaint
	history     []*complaint.HistoryEntry
	attachments []*complaint.Attachment
	requests    []*complaint.InformationRequest
}

// ComplaintRepository keeps complaints in process memory. Commit holds a
// single write lock, so the version check and every write of a change
// happen as one step.
type ComplaintRepository struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*record
	byTracking map[string]uuid.UUID
	// retained holds the history of deleted complaints.
	retained map[uuid.UUID][]*complaint.HistoryEntry
}

func NewComplaintRepository() *ComplaintRepository {
	return &ComplaintRepository{
		records:    make(map[uuid.UUID]*record),
		byTracking: make(map[string]uuid.UUID),
		retained:   make(map[uuid.UUID][]*complaint.HistoryEntry),
	}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[c.ID]; ok {
		return fmt.Errorf("complaint %s already exists", c.ID)
	}
	if _, ok := r.byTracking[c.TrackingNumber]; ok {
		return fmt.Errorf("tracking number %s already issued", c.TrackingNumber)
	}
	rec := &record{complaint: c.Clone()}
	for _, h := range history {
		rec.history = append(rec.history, cloneEntry(h))
	}
	r.records[c.ID] = rec
	r.byTracking[c.TrackingNumber] = c.ID
	return nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return rec.complaint.Clone(), nil
}

func (r *ComplaintRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*complaint.Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTracking[trackingNumber]
	if !ok {
		return nil, nil
	}
	return r.records[id].complaint.Clone(), nil
}

func (r *ComplaintRepository) List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]*complaint.Complaint, error) {
	r.mu.RLock()
	var out []*complaint.Complaint
	for _, rec := range r.records {
		if matches(rec.complaint, filter) {
			out = append(out, rec.complaint.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TrackingNumber > out[j].TrackingNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []*complaint.Complaint{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func matches(c *complaint.Complaint, f complaint.Filter) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.CitizenID != nil && c.CitizenID != *f.CitizenID {
		return false
	}
	if f.AssignedEmployeeID != nil && (c.AssignedEmployeeID == nil || *c.AssignedEmployeeID != *f.AssignedEmployeeID) {
		return false
	}
	if f.Agency != nil && c.Agency != *f.Agency {
		return false
	}
	return true
}

func (r *ComplaintRepository) Commit(ctx context.Context, change *complaint.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := change.Complaint
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[next.ID]
	if !ok {
		return complaint.NewNotFoundError("complaint", next.ID.String())
	}
	if rec.complaint.Version != change.ExpectedVersion {
		return complaint.NewConcurrentModificationError(change.ExpectedVersion, rec.complaint.Version)
	}
	if next.Version != change.ExpectedVersion+1 {
		return fmt.Errorf("commit must advance version by one: %d -> %d", change.ExpectedVersion, next.Version)
	}

	// Validate everything before touching the record.
	last := int64(0)
	if n := len(rec.history); n > 0 {
		last = rec.history[n-1].Sequence
	}
	for _, h := range change.History {
		if h.Sequence <= last {
			return fmt.Errorf("history sequence %d does not follow %d", h.Sequence, last)
		}
		last = h.Sequence
	}
	reqIdx := -1
	if req := change.Request; req != nil {
		for i, existing := range rec.requests {
			if existing.ID == req.ID {
				reqIdx = i
			} else if change.NewRequest && existing.Status == complaint.RequestPending && req.Status == complaint.RequestPending {
				return complaint.NewDuplicateRequestError()
			}
		}
		if !change.NewRequest && reqIdx < 0 {
			return complaint.NewNotFoundError("information request", req.ID.String())
		}
	}
	if att := change.AddAttachment; att != nil {
		for _, existing := range rec.attachments {
			if existing.StoredName == att.StoredName {
				return fmt.Errorf("stored name %s already used for %s", att.StoredName, next.TrackingNumber)
			}
		}
	}
	attIdx := -1
	if id := change.RemoveAttachment; id != nil {
		for i, existing := range rec.attachments {
			if existing.ID == *id {
				attIdx = i
			}
		}
		if attIdx < 0 {
			return complaint.NewNotFoundError("attachment", id.String())
		}
	}

	rec.complaint = next.Clone()
	for _, h := range change.History {
		rec.history = append(rec.history, cloneEntry(h))
	}
	if req := change.Request; req != nil {
		if reqIdx >= 0 {
			rec.requests[reqIdx] = req.Clone()
		} else {
			rec.requests = append(rec.requests, req.Clone())
		}
	}
	if att := change.AddAttachment; att != nil {
		a := *att
		rec.attachments = append(rec.attachments, &a)
	}
	if attIdx >= 0 {
		rec.attachments = append(rec.attachments[:attIdx], rec.attachments[attIdx+1:]...)
	}
	return nil
}

func (r *ComplaintRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64, tombstone *complaint.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return complaint.NewNotFoundError("complaint", id.String())
	}
	if rec.complaint.Version != expectedVersion {
		return complaint.NewConcurrentModificationError(expectedVersion, rec.complaint.Version)
	}
	kept := rec.history
	if tombstone != nil {
		if n := len(kept); n > 0 && tombstone.Sequence <= kept[n-1].Sequence {
			return fmt.Errorf("history sequence %d does not follow %d", tombstone.Sequence, kept[n-1].Sequence)
		}
		kept = append(kept, cloneEntry(tombstone))
	}
	r.retained[id] = kept
	delete(r.byTracking, rec.complaint.TrackingNumber)
	delete(r.records, id)
	return nil
}

func (r *ComplaintRepository) ListHistory(ctx context.Context, complaintID uuid.UUID) ([]*complaint.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.retained[complaintID]
	if rec, ok := r.records[complaintID]; ok {
		entries = rec.history
	}
	out := make([]*complaint.HistoryEntry, 0, len(entries))
	for _, h := range entries {
		out = append(out, cloneEntry(h))
	}
	return out, nil
}

func (r *ComplaintRepository) ListAttachments(ctx context.Context, complaintID uuid.UUID) ([]*complaint.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[complaintID]
	if !ok {
		return []*complaint.Attachment{}, nil
	}
	out := make([]*complaint.Attachment, 0, len(rec.attachments))
	for _, a := range rec.attachments {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ComplaintRepository) GetAttachment(ctx context.Context, complaintID, attachmentID uuid.UUID) (*complaint.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[complaintID]
	if !ok {
		return nil, nil
	}
	for _, a := range rec.attachments {
		if a.ID == attachmentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ComplaintRepository) ListInformationRequests(ctx context.Context, complaintID uuid.UUID) ([]*complaint.InformationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[complaintID]
	if !ok {
		return []*complaint.InformationRequest{}, nil
	}
	out := make([]*complaint.InformationRequest, 0, len(rec.requests))
	for _, req := range rec.requests {
		out = append(out, req.Clone())
	}
	return out, nil
}

func (r *ComplaintRepository) GetInformationRequest(ctx context.Context, complaintID, requestID uuid.UUID) (*complaint.InformationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[complaintID]
	if !ok {
		return nil, nil
	}
	for _, req := range rec.requests {
		if req.ID == requestID {
			return req.Clone(), nil
		}
	}
	return nil, nil
}

func (r *ComplaintRepository) GetPendingInformationRequest(ctx context.Context, complaintID uuid.UUID) (*complaint.InformationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[complaintID]
	if !ok {
		return nil, nil
	}
	for _, req := range rec.requests {
		if req.Status == complaint.RequestPending {
			return req.Clone(), nil
		}
	}
	return nil, nil
}

func cloneEntry(h *complaint.HistoryEntry) *complaint.HistoryEntry {
	cp := *h
	if h.Metadata != nil {
		cp.Metadata = append([]byte(nil), h.Metadata...)
	}
	if h.Signature != nil {
		cp.Signature = append([]byte(nil), h.Signature...)
	}
	return &cp
}

package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

// MockRepository is a mock implementation of complaint.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c *complaint.Complaint, history []*complaint.HistoryEntry) error {
	args := m.Called(ctx, c, history)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Complaint), args.Error(1)
}

func (m *MockRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*complaint.Complaint, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Complaint), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter complaint.Filter, limit, offset int) ([]*complaint.Complaint, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*complaint.Complaint), args.Error(1)
}

func (m *MockRepository) Commit(ctx context.Context, change *complaint.Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64, tombstone *complaint.HistoryEntry) error {
	args := m.Called(ctx, id, expectedVersion, tombstone)
	return args.Error(0)
}

func (m *MockRepository) ListHistory(ctx context.Context, complaintID uuid.UUID) ([]*complaint.HistoryEntry, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*complaint.HistoryEntry), args.Error(1)
}

func (m *MockRepository) ListAttachments(ctx context.Context, complaintID uuid.UUID) ([]*complaint.Attachment, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*complaint.Attachment), args.Error(1)
}

func (m *MockRepository) GetAttachment(ctx context.Context, complaintID, attachmentID uuid.UUID) (*complaint.Attachment, error) {
	args := m.Called(ctx, complaintID, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Attachment), args.Error(1)
}

func (m *MockRepository) ListInformationRequests(ctx context.Context, complaintID uuid.UUID) ([]*complaint.InformationRequest, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*complaint.InformationRequest), args.Error(1)
}

func (m *MockRepository) GetInformationRequest(ctx context.Context, complaintID, requestID uuid.UUID) (*complaint.InformationRequest, error) {
	args := m.Called(ctx, complaintID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.InformationRequest), args.Error(1)
}

func (m *MockRepository) GetPendingInformationRequest(ctx context.Context, complaintID uuid.UUID) (*complaint.InformationRequest, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.InformationRequest), args.Error(1)
}

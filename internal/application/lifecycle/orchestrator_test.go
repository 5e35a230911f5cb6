package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/complaint-hub/complaint-hub/internal/application/concurrency"
	"github.com/complaint-hub/complaint-hub/internal/application/history"
	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint/mocks"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
	notificationmocks "github.com/complaint-hub/complaint-hub/internal/domain/notification/mocks"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/filestore"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/memory"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/metrics"
)

var (
	citizen   = complaint.Actor{Kind: complaint.ActorCitizen, ID: "cit-1", Name: "Citizen"}
	employee  = complaint.Actor{Kind: complaint.ActorEmployee, ID: "emp-1", Name: "Employee One"}
	employee2 = complaint.Actor{Kind: complaint.ActorEmployee, ID: "emp-2", Name: "Employee Two"}
	admin     = complaint.Actor{Kind: complaint.ActorAdmin, ID: "adm-1", Name: "Admin"}

	details = complaint.Details{Type: "roads", Governorate: "Giza", Agency: "Roads Authority", Description: "pothole"}
)

type harness struct {
	o       *Orchestrator
	repo    *memory.ComplaintRepository
	store   *filestore.Store
	root    string
	metrics *metrics.Metrics

	mu    sync.Mutex
	facts []*notification.Fact
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	dispatcher := notificationmocks.NewMockDispatcher(ctrl)

	h := &harness{repo: memory.NewComplaintRepository(), root: t.TempDir()}
	dispatcher.EXPECT().Emit(gomock.Any()).Do(func(f *notification.Fact) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.facts = append(h.facts, f)
	}).AnyTimes()

	store, err := filestore.New(h.root, attachment.AlgorithmSHA256, 1<<20, zerolog.Nop())
	require.NoError(t, err)
	h.store = store
	h.metrics = metrics.New(prometheus.NewRegistry())

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.o = NewOrchestrator(h.repo, store, history.NewRecorder([]byte("secret"), zerolog.Nop()), dispatcher, h.metrics, zerolog.Nop()).
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		})
	return h
}

func (h *harness) lastFact() *notification.Fact {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.facts) == 0 {
		return nil
	}
	return h.facts[len(h.facts)-1]
}

func (h *harness) create(t *testing.T) *complaint.Complaint {
	t.Helper()
	res, err := h.o.Create(context.Background(), CreateInput{Actor: citizen, Details: details})
	require.NoError(t, err)
	return res.Complaint
}

func (h *harness) claim(t *testing.T, c *complaint.Complaint) *complaint.Complaint {
	t.Helper()
	res, err := h.o.TransitionStatus(context.Background(), TransitionInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: c.Version, Target: complaint.StatusInProgress,
	})
	require.NoError(t, err)
	return res.Complaint
}

func TestOrchestrator_Create(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.o.Create(ctx, CreateInput{Actor: citizen, Details: details})
	require.NoError(t, err)

	c := res.Complaint
	assert.Equal(t, complaint.StatusPending, c.Status)
	assert.Equal(t, int64(0), c.Version)
	assert.False(t, c.Locked)
	require.NotNil(t, res.Notification)
	assert.Equal(t, notification.EventComplaintCreated, res.Notification.EventKind)
	assert.Equal(t, notification.RecipientAgency, res.Notification.RecipientType)
	assert.Equal(t, "Roads Authority", res.Notification.RecipientID)

	entries, err := h.o.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, complaint.ActionCreated, entries[0].Action)
	assert.Equal(t, int64(1), entries[0].Sequence)
	assert.NotEmpty(t, entries[0].Signature)

	_, err = h.o.Create(ctx, CreateInput{Actor: employee, Details: details})
	assert.ErrorIs(t, err, complaint.ErrValidation)

	_, err = h.o.Create(ctx, CreateInput{Actor: citizen, Details: complaint.Details{Type: "roads"}})
	assert.ErrorIs(t, err, complaint.ErrValidation)
}

func TestOrchestrator_FullLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)

	c = h.claim(t, c)
	assert.Equal(t, int64(1), c.Version)
	assert.True(t, c.Locked)
	assert.Equal(t, "emp-1", *c.LockOwnerID)
	assert.Equal(t, "emp-1", *c.AssignedEmployeeID)
	assert.Equal(t, notification.RecipientCitizen, h.lastFact().RecipientType)

	desc := "deep pothole"
	_, err := h.o.UpdateFields(ctx, UpdateFieldsInput{
		ComplaintID: c.ID, Actor: employee2, ExpectedVersion: 1,
		Fields: complaint.FieldUpdate{Description: &desc},
	})
	assert.ErrorIs(t, err, complaint.ErrLocked)

	res, err := h.o.RequestInformation(ctx, RequestInformationInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 1, Question: "Send a photo?",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Request)
	assert.Equal(t, int64(2), res.Complaint.Version)
	reqID := res.Request.ID

	res, err = h.o.RespondToInformationRequest(ctx, RespondInformationInput{
		ComplaintID: c.ID, RequestID: reqID, Actor: citizen, ExpectedVersion: 2, Answer: "attached",
	})
	require.NoError(t, err)
	assert.Equal(t, complaint.RequestResponded, res.Request.Status)
	assert.Equal(t, notification.RecipientEmployee, res.Notification.RecipientType)
	assert.Equal(t, "emp-1", res.Notification.RecipientID)

	res, err = h.o.TransitionStatus(ctx, TransitionInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 3, Target: complaint.StatusResolved, Response: "fixed",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Complaint.Version)
	assert.False(t, res.Complaint.Locked)
	assert.Nil(t, res.Complaint.LockOwnerID)
	assert.Equal(t, "fixed", *res.Complaint.Response)

	res, err = h.o.TransitionStatus(ctx, TransitionInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 4, Target: complaint.StatusClosed,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Complaint.Version)

	entries, err := h.o.History(ctx, c.ID)
	require.NoError(t, err)
	actions := make([]complaint.Action, 0, len(entries))
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Sequence)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []complaint.Action{
		complaint.ActionCreated,
		complaint.ActionStatusChanged,
		complaint.ActionLocked,
		complaint.ActionInfoRequested,
		complaint.ActionInfoProvided,
		complaint.ActionStatusChanged,
		complaint.ActionUnlocked,
		complaint.ActionStatusChanged,
	}, actions)

	report, err := h.o.VerifyHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, report.Verified)

	snaps, err := h.o.Replay(ctx, c.ID)
	require.NoError(t, err)
	last := snaps[len(snaps)-1]
	assert.Equal(t, complaint.StatusClosed, last.Status)
	assert.False(t, last.Locked)
	assert.Equal(t, "fixed", last.Response)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.LockRefusals))
}

func TestOrchestrator_ConcurrentTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.claim(t, h.create(t))

	actors := []complaint.Actor{employee, admin}
	errs := make([]error, len(actors))
	var g errgroup.Group
	for i, a := range actors {
		i, a := i, a
		g.Go(func() error {
			_, errs[i] = h.o.TransitionStatus(ctx, TransitionInput{
				ComplaintID: c.ID, Actor: a, ExpectedVersion: 1, Target: complaint.StatusResolved,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, complaint.ErrConcurrentModification)
	}
	assert.Equal(t, 1, wins)

	got, err := h.o.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, complaint.StatusResolved, got.Status)

	entries, err := h.o.History(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "created, claim pair, one resolution pair")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.VersionConflicts))
}

func TestOrchestrator_InformationRequestRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)

	_, err := h.o.RequestInformation(ctx, RequestInformationInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 0, Question: "photo?",
	})
	assert.ErrorIs(t, err, complaint.ErrInvalidTransition)

	c = h.claim(t, c)
	res, err := h.o.RequestInformation(ctx, RequestInformationInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 1, Question: "photo?",
	})
	require.NoError(t, err)
	reqID := res.Request.ID

	_, err = h.o.RequestInformation(ctx, RequestInformationInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 2, Question: "again?",
	})
	assert.ErrorIs(t, err, complaint.ErrDuplicateRequest)

	_, err = h.o.TransitionStatus(ctx, TransitionInput{
		ComplaintID: c.ID, Actor: employee, ExpectedVersion: 2, Target: complaint.StatusResolved,
	})
	assert.ErrorIs(t, err, complaint.ErrInvalidTransition)

	_, err = h.o.RespondToInformationRequest(ctx, RespondInformationInput{
		ComplaintID: c.ID, RequestID: reqID, Actor: employee, ExpectedVersion: 2, Answer: "x",
	})
	assert.ErrorIs(t, err, complaint.ErrValidation)

	res, err = h.o.CancelInformationRequest(ctx, CancelInformationInput{
		ComplaintID: c.ID, RequestID: reqID, Actor: employee, ExpectedVersion: 2, Reason: "not needed",
	})
	require.NoError(t, err)
	assert.Equal(t, complaint.RequestCancelled, res.Request.Status)

	_, err = h.o.RespondToInformationRequest(ctx, RespondInformationInput{
		ComplaintID: c.ID, RequestID: reqID, Actor: citizen, ExpectedVersion: 3, Answer: "late",
	})
	assert.ErrorIs(t, err, complaint.ErrInvalidTransition)

	_, err = h.o.CancelInformationRequest(ctx, CancelInformationInput{
		ComplaintID: c.ID, RequestID: uuid.New(), Actor: employee, ExpectedVersion: 3,
	})
	assert.ErrorIs(t, err, complaint.ErrNotFound)

	got, err := h.o.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version, "refused commands leave the version alone")
}

func TestOrchestrator_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("closed complaints cannot reopen", func(t *testing.T) {
		h := newHarness(t)
		c := h.claim(t, h.create(t))
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: employee, ExpectedVersion: 1, Target: complaint.StatusRejected, Response: "duplicate",
		})
		require.NoError(t, err)
		_, err = h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: admin, ExpectedVersion: 2, Target: complaint.StatusClosed,
		})
		require.NoError(t, err)

		_, err = h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: employee, ExpectedVersion: 3, Target: complaint.StatusInProgress,
		})
		var lerr *complaint.Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, complaint.CodeInvalidTransition, lerr.Code)
		assert.Equal(t, complaint.StatusClosed, lerr.From)
		assert.Equal(t, complaint.StatusInProgress, lerr.To)
	})

	t.Run("reject needs a response", func(t *testing.T) {
		h := newHarness(t)
		c := h.create(t)
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: employee, ExpectedVersion: 0, Target: complaint.StatusRejected,
		})
		assert.ErrorIs(t, err, complaint.ErrValidation)
	})

	t.Run("citizen cannot claim", func(t *testing.T) {
		h := newHarness(t)
		c := h.create(t)
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 0, Target: complaint.StatusInProgress,
		})
		assert.ErrorIs(t, err, complaint.ErrValidation)

		got, err := h.o.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, complaint.StatusPending, got.Status)
		assert.False(t, got.Locked)
		assert.Nil(t, got.LockOwnerID)
	})

	t.Run("stale version", func(t *testing.T) {
		h := newHarness(t)
		c := h.claim(t, h.create(t))
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: employee, ExpectedVersion: 0, Target: complaint.StatusResolved,
		})
		assert.ErrorIs(t, err, complaint.ErrConcurrentModification)
	})

	t.Run("admin overrides the lock", func(t *testing.T) {
		h := newHarness(t)
		c := h.claim(t, h.create(t))
		res, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: admin, ExpectedVersion: 1, Target: complaint.StatusRejected, Response: "out of scope",
		})
		require.NoError(t, err)
		assert.False(t, res.Complaint.Locked)

		entries, _ := h.o.History(ctx, c.ID)
		unlocked := entries[len(entries)-1]
		assert.Equal(t, complaint.ActionUnlocked, unlocked.Action)
		meta, err := unlocked.MetadataMap()
		require.NoError(t, err)
		assert.Equal(t, "emp-1", meta["previousOwner"])
	})

	t.Run("unknown complaint", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: uuid.New(), Actor: employee, Target: complaint.StatusInProgress,
		})
		assert.ErrorIs(t, err, complaint.ErrNotFound)
	})
}

func TestOrchestrator_Attachments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)

	res, err := h.o.AddAttachment(ctx, AddAttachmentInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 0,
		OriginalName: "photo.txt", Data: []byte("hello"),
	})
	require.NoError(t, err)
	att := res.Attachment
	require.NotNil(t, att)
	assert.Equal(t, int64(1), res.Complaint.Version)
	assert.Equal(t, "photo.txt", att.OriginalName)
	assert.NotEqual(t, "photo.txt", att.StoredName)
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.AttachmentBytes))

	content, err := h.o.LoadAttachment(ctx, c.ID, att.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content.Data)

	full := filepath.Join(h.root, filepath.FromSlash(att.RelativePath))
	require.NoError(t, os.WriteFile(full, []byte("HELLO"), 0o644))
	_, err = h.o.LoadAttachment(ctx, c.ID, att.ID)
	assert.ErrorIs(t, err, complaint.ErrStorage)

	res, err = h.o.RemoveAttachment(ctx, RemoveAttachmentInput{
		ComplaintID: c.ID, AttachmentID: att.ID, Actor: citizen, ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	list, err := h.o.Attachments(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.o.RemoveAttachment(ctx, RemoveAttachmentInput{
		ComplaintID: c.ID, AttachmentID: att.ID, Actor: citizen, ExpectedVersion: 2,
	})
	assert.ErrorIs(t, err, complaint.ErrNotFound)

	snaps, err := h.o.Replay(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps[len(snaps)-1].Attachments)
}

func TestOrchestrator_AddAttachmentCompensates(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockRepository)
	root := t.TempDir()
	store, err := filestore.New(root, attachment.AlgorithmSHA256, 1<<20, zerolog.Nop())
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	o := NewOrchestrator(repo, store, history.NewRecorder(nil, zerolog.Nop()), nil, m, zerolog.Nop())

	c, err := complaint.New(citizen, details, "CMP-20260301-AAAABBBB", time.Now().UTC())
	require.NoError(t, err)
	c.HistorySeq = 1

	repo.On("GetByID", ctx, c.ID).Return(c, nil)
	repo.On("Commit", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err = o.AddAttachment(ctx, AddAttachmentInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 0,
		OriginalName: "a.txt", Data: []byte("payload"),
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, c.TrackingNumber))
	assert.True(t, os.IsNotExist(statErr), "stored file is removed after the failed commit")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompensatingDeletes.WithLabelValues("ok")))
	assert.Equal(t, int64(0), c.Version)
	repo.AssertExpectations(t)
}

func TestOrchestrator_AttachmentsOnClosedComplaint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.claim(t, h.create(t))
	for i, target := range []complaint.Status{complaint.StatusRejected, complaint.StatusClosed} {
		_, err := h.o.TransitionStatus(ctx, TransitionInput{
			ComplaintID: c.ID, Actor: admin, ExpectedVersion: int64(i) + 1, Target: target, Response: "spam",
		})
		require.NoError(t, err)
	}

	_, err := h.o.AddAttachment(ctx, AddAttachmentInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 3, OriginalName: "a.txt", Data: []byte("x"),
	})
	assert.ErrorIs(t, err, complaint.ErrInvalidTransition)

	entries, err := os.ReadDir(h.root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".tmp", e.Name(), "nothing stored for a refused upload")
	}
}

func TestOrchestrator_UpdateFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)

	agency := "Water Authority"
	res, err := h.o.UpdateFields(ctx, UpdateFieldsInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 0,
		Fields: complaint.FieldUpdate{Agency: &agency},
	})
	require.NoError(t, err)
	assert.Equal(t, agency, res.Complaint.Agency)

	entries, _ := h.o.History(ctx, c.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, complaint.ActionFieldsUpdated, last.Action)
	require.NotNil(t, last.FieldName)
	assert.Equal(t, "agency", *last.FieldName)
	assert.Equal(t, "Roads Authority", *last.OldValue)

	_, err = h.o.UpdateFields(ctx, UpdateFieldsInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 1,
		Fields: complaint.FieldUpdate{Agency: &agency},
	})
	assert.ErrorIs(t, err, complaint.ErrValidation)
}

func TestOrchestrator_RetryOnConflictReloads(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.claim(t, h.create(t))

	descriptions := []string{"deep pothole", "pothole near school"}
	types := []string{"roads", "safety"}
	var g errgroup.Group
	for i := range descriptions {
		fields := complaint.FieldUpdate{Description: &descriptions[i], Type: &types[i]}
		g.Go(func() error {
			return concurrency.RetryOnConflict(ctx, 5, func(ctx context.Context) error {
				cur, err := h.o.Get(ctx, c.ID)
				if err != nil {
					return err
				}
				_, err = h.o.UpdateFields(ctx, UpdateFieldsInput{
					ComplaintID: c.ID, Actor: employee, ExpectedVersion: cur.Version, Fields: fields,
				})
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	got, err := h.o.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	entries, err := h.o.History(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestOrchestrator_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)
	res, err := h.o.AddAttachment(ctx, AddAttachmentInput{
		ComplaintID: c.ID, Actor: citizen, ExpectedVersion: 0, OriginalName: "a.txt", Data: []byte("x"),
	})
	require.NoError(t, err)
	c = h.claim(t, res.Complaint)

	_, err = h.o.Delete(ctx, DeleteInput{ComplaintID: c.ID, Actor: employee, ExpectedVersion: 2})
	assert.ErrorIs(t, err, complaint.ErrLocked)

	res, err = h.o.Delete(ctx, DeleteInput{ComplaintID: c.ID, Actor: admin, ExpectedVersion: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, notification.EventComplaintDeleted, res.Notification.EventKind)

	_, err = h.o.Get(ctx, c.ID)
	assert.ErrorIs(t, err, complaint.ErrNotFound)
	_, err = os.Stat(filepath.Join(h.root, c.TrackingNumber))
	assert.True(t, os.IsNotExist(err))

	entries, err := h.o.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5, "history survives the delete")
	tombstone := entries[len(entries)-1]
	assert.Equal(t, complaint.ActionDeleted, tombstone.Action)
	assert.Equal(t, int64(5), tombstone.Sequence)
	assert.Equal(t, admin.ID, tombstone.Actor.ID)
	assert.Equal(t, string(complaint.StatusInProgress), *tombstone.OldValue)

	report, err := h.o.VerifyHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, report.Verified)

	snaps, err := h.o.Replay(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, snaps[len(snaps)-1].Deleted)
}

func TestOrchestrator_Queries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t)

	got, err := h.o.GetByTrackingNumber(ctx, c.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = h.o.GetByTrackingNumber(ctx, "CMP-00000000-00000000")
	assert.ErrorIs(t, err, complaint.ErrNotFound)

	citizenID := citizen.ID
	list, err := h.o.List(ctx, complaint.Filter{CitizenID: &citizenID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	requests, err := h.o.InformationRequests(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)

	_, err = h.o.History(ctx, uuid.New())
	assert.ErrorIs(t, err, complaint.ErrNotFound)
}

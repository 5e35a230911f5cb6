package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/application/history"
	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

type CreateInput struct {
	Actor   complaint.Actor
	Details complaint.Details
}

type TransitionInput struct {
	ComplaintID     uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	Target          complaint.Status
	// Response is the outcome text; required when rejecting.
	Response string
}

type UpdateFieldsInput struct {
	ComplaintID     uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	Fields          complaint.FieldUpdate
}

type RequestInformationInput struct {
	ComplaintID     uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	Question        string
}

type RespondInformationInput struct {
	ComplaintID     uuid.UUID
	RequestID       uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	Answer          string
}

type CancelInformationInput struct {
	ComplaintID     uuid.UUID
	RequestID       uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	Reason          string
}

type AddAttachmentInput struct {
	ComplaintID     uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
	OriginalName    string
	ContentType     string
	Data            []byte
}

type RemoveAttachmentInput struct {
	ComplaintID     uuid.UUID
	AttachmentID    uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
}

type DeleteInput struct {
	ComplaintID     uuid.UUID
	Actor           complaint.Actor
	ExpectedVersion int64
}

// Create files a new complaint for a citizen.
func (o *Orchestrator) Create(ctx context.Context, in CreateInput) (*Result, error) {
	start := time.Now()
	cmd := command{name: CmdCreate, actor: in.Actor}
	res, err := o.create(ctx, in)
	if res != nil {
		cmd.complaintID = res.Complaint.ID
	}
	o.observe(cmd, start, err)
	return res, err
}

func (o *Orchestrator) create(ctx context.Context, in CreateInput) (*Result, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	at := o.now()
	c, err := complaint.New(in.Actor, in.Details, complaint.NewTrackingNumber(at), at)
	if err != nil {
		return nil, err
	}
	created := string(complaint.StatusPending)
	h, err := o.recorder.Append(c, in.Actor, at, history.Entry{
		Action: complaint.ActionCreated,
		Field:  history.FieldStatus,
		New:    &created,
		Metadata: map[string]any{
			history.MetaTrackingNumber: c.TrackingNumber,
			history.MetaType:           c.Type,
			history.MetaGovernorate:    c.Governorate,
			history.MetaAgency:         c.Agency,
			history.MetaDescription:    c.Description,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := o.repo.Create(ctx, c, []*complaint.HistoryEntry{h}); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	return &Result{
		Complaint:    c,
		Notification: o.emit(notification.EventComplaintCreated, c, in.Actor, at),
	}, nil
}

// TransitionStatus moves a complaint along one edge of the lifecycle.
// Leaving IN_PROGRESS is refused while an information request is pending.
func (o *Orchestrator) TransitionStatus(ctx context.Context, in TransitionInput) (*Result, error) {
	cmd := command{
		name:        CmdTransition,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventStatusChanged,
	}
	return o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		from := c.Status
		if in.Target == complaint.StatusRejected && strings.TrimSpace(in.Response) == "" {
			return complaint.NewValidationError("a response is required to reject a complaint")
		}
		if from == complaint.StatusInProgress && in.Target != from {
			pending, err := o.repo.GetPendingInformationRequest(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("load pending request: %w", err)
			}
			if pending != nil {
				return complaint.NewInvalidTransitionError(from, in.Target).WithMessage(
					fmt.Sprintf("complaint %s has a pending information request", c.TrackingNumber))
			}
		}

		previousOwner := ""
		if c.LockOwnerID != nil {
			previousOwner = *c.LockOwnerID
		}
		lock, err := c.Transition(in.Target, in.Actor, p.at)
		if err != nil {
			return err
		}

		var meta map[string]any
		if r := strings.TrimSpace(in.Response); r != "" &&
			(in.Target == complaint.StatusResolved || in.Target == complaint.StatusRejected) {
			c.SetResponse(r, p.at)
			meta = map[string]any{history.MetaResponse: r}
		}
		if err := p.record(c, history.Status(from, in.Target, meta)); err != nil {
			return err
		}
		owner := previousOwner
		if lock == complaint.LockAcquired {
			owner = in.Actor.ID
		}
		if e, ok := history.Lock(lock, owner); ok {
			return p.record(c, e)
		}
		return nil
	})
}

// UpdateFields edits the citizen-supplied details of an open complaint.
func (o *Orchestrator) UpdateFields(ctx context.Context, in UpdateFieldsInput) (*Result, error) {
	cmd := command{
		name:        CmdUpdateFields,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventFieldsUpdated,
	}
	return o.execute(ctx, cmd, func(_ context.Context, c *complaint.Complaint, p *op) error {
		changes, err := c.ApplyFields(in.Fields, p.at)
		if err != nil {
			return err
		}
		return p.record(c, history.Fields(changes))
	})
}

// RequestInformation opens an information request on an in-progress complaint.
func (o *Orchestrator) RequestInformation(ctx context.Context, in RequestInformationInput) (*Result, error) {
	cmd := command{
		name:        CmdRequestInfo,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventInfoRequested,
	}
	return o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		var pending *complaint.InformationRequest
		if c.Status == complaint.StatusInProgress {
			var err error
			if pending, err = o.repo.GetPendingInformationRequest(ctx, c.ID); err != nil {
				return fmt.Errorf("load pending request: %w", err)
			}
		}
		req, err := complaint.OpenInformationRequest(c, pending, in.Actor, in.Question, p.at)
		if err != nil {
			return err
		}
		c.Touch(p.at)
		p.change.Request = req
		p.change.NewRequest = true
		p.result.Request = req
		return p.record(c, history.Entry{
			Action: complaint.ActionInfoRequested,
			Metadata: map[string]any{
				history.MetaRequestID: req.ID.String(),
				history.MetaQuestion:  req.Question,
			},
		})
	})
}

// RespondToInformationRequest records the citizen's answer to a pending request.
func (o *Orchestrator) RespondToInformationRequest(ctx context.Context, in RespondInformationInput) (*Result, error) {
	cmd := command{
		name:        CmdRespondInfo,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventInfoProvided,
	}
	return o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		if in.Actor.Kind != complaint.ActorCitizen {
			return complaint.NewValidationError("only the citizen can answer an information request")
		}
		req, err := o.openRequest(ctx, c, in.RequestID)
		if err != nil {
			return err
		}
		if err := req.Respond(in.Actor, in.Answer, p.at); err != nil {
			return err
		}
		c.Touch(p.at)
		p.change.Request = req
		p.result.Request = req
		return p.record(c, history.Entry{
			Action: complaint.ActionInfoProvided,
			Metadata: map[string]any{
				history.MetaRequestID: req.ID.String(),
				history.MetaAnswer:    *req.Answer,
			},
		})
	})
}

// CancelInformationRequest withdraws a pending request.
func (o *Orchestrator) CancelInformationRequest(ctx context.Context, in CancelInformationInput) (*Result, error) {
	cmd := command{
		name:        CmdCancelInfo,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventInfoRequestCancelled,
	}
	return o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		if !in.Actor.IsStaff() {
			return complaint.NewValidationError("only staff can cancel an information request")
		}
		req, err := o.openRequest(ctx, c, in.RequestID)
		if err != nil {
			return err
		}
		if err := req.Cancel(in.Actor, in.Reason, p.at); err != nil {
			return err
		}
		c.Touch(p.at)
		p.change.Request = req
		p.result.Request = req
		meta := map[string]any{history.MetaRequestID: req.ID.String()}
		if req.Reason != nil {
			meta[history.MetaReason] = *req.Reason
		}
		return p.record(c, history.Entry{Action: complaint.ActionInfoRequestCancelled, Metadata: meta})
	})
}

func (o *Orchestrator) openRequest(ctx context.Context, c *complaint.Complaint, id uuid.UUID) (*complaint.InformationRequest, error) {
	req, err := o.repo.GetInformationRequest(ctx, c.ID, id)
	if err != nil {
		return nil, fmt.Errorf("load information request: %w", err)
	}
	if req == nil {
		return nil, complaint.NewNotFoundError("information request", id.String())
	}
	if c.Status != complaint.StatusInProgress {
		return nil, complaint.NewInvalidTransitionError(c.Status, c.Status).WithMessage(
			fmt.Sprintf("information requests need an IN_PROGRESS complaint, %s is %s", c.TrackingNumber, c.Status))
	}
	return req, nil
}

// AddAttachment stores the file first and commits its record second. A
// failed commit removes the stored file again.
func (o *Orchestrator) AddAttachment(ctx context.Context, in AddAttachmentInput) (*Result, error) {
	cmd := command{
		name:        CmdAddAttachment,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventAttachmentAdded,
	}
	res, err := o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		if c.Status == complaint.StatusClosed {
			return complaint.NewInvalidTransitionError(c.Status, c.Status).WithMessage(
				fmt.Sprintf("complaint %s is closed", c.TrackingNumber))
		}
		stored, err := o.store.Store(ctx, attachment.Upload{
			Data:           in.Data,
			OriginalName:   in.OriginalName,
			ContentType:    in.ContentType,
			TrackingNumber: c.TrackingNumber,
		})
		if err != nil {
			return err
		}
		p.compensate = append(p.compensate, func(ctx context.Context) {
			o.compensate(ctx, c, stored)
		})

		att := &complaint.Attachment{
			ID:           uuid.New(),
			ComplaintID:  c.ID,
			OriginalName: attachment.SanitizeOriginalName(in.OriginalName),
			StoredName:   stored.StoredName,
			RelativePath: stored.RelativePath,
			ContentType:  stored.ContentType,
			Size:         stored.Size,
			Checksum:     stored.Checksum,
			UploadedBy:   in.Actor.ID,
			UploadedAt:   p.at,
		}
		c.Touch(p.at)
		p.change.AddAttachment = att
		p.result.Attachment = att
		return p.record(c, history.Entry{
			Action: complaint.ActionAttachmentAdded,
			New:    &att.OriginalName,
			Metadata: map[string]any{
				history.MetaAttachmentID: att.ID.String(),
				history.MetaOriginalName: att.OriginalName,
				history.MetaStoredName:   att.StoredName,
				history.MetaChecksum:     att.Checksum,
				history.MetaSize:         att.Size,
			},
		})
	})
	if err == nil {
		o.metrics.AddAttachmentBytes(res.Attachment.Size)
	}
	return res, err
}

func (o *Orchestrator) compensate(ctx context.Context, c *complaint.Complaint, stored *attachment.StoredFile) {
	err := o.store.Delete(ctx, stored.RelativePath)
	o.metrics.IncCompensatingDelete(err == nil)
	if err != nil {
		o.logger.Error().Err(err).
			Str("trackingNumber", c.TrackingNumber).
			Str("path", stored.RelativePath).
			Msg("compensating delete failed, file is orphaned")
		return
	}
	o.logger.Info().
		Str("trackingNumber", c.TrackingNumber).
		Str("path", stored.RelativePath).
		Msg("removed attachment file after failed commit")
}

// RemoveAttachment commits the removal first and deletes the file second. A
// file that cannot be deleted is reported as a warning.
func (o *Orchestrator) RemoveAttachment(ctx context.Context, in RemoveAttachmentInput) (*Result, error) {
	cmd := command{
		name:        CmdRemoveAttachment,
		complaintID: in.ComplaintID,
		actor:       in.Actor,
		expected:    in.ExpectedVersion,
		event:       notification.EventAttachmentRemoved,
	}
	return o.execute(ctx, cmd, func(ctx context.Context, c *complaint.Complaint, p *op) error {
		if c.Status == complaint.StatusClosed {
			return complaint.NewInvalidTransitionError(c.Status, c.Status).WithMessage(
				fmt.Sprintf("complaint %s is closed", c.TrackingNumber))
		}
		att, err := o.repo.GetAttachment(ctx, c.ID, in.AttachmentID)
		if err != nil {
			return fmt.Errorf("load attachment: %w", err)
		}
		if att == nil {
			return complaint.NewNotFoundError("attachment", in.AttachmentID.String())
		}
		c.Touch(p.at)
		p.change.RemoveAttachment = &att.ID
		p.result.Attachment = att
		p.after = append(p.after, func(ctx context.Context) []string {
			return o.deleteFiles(ctx, c, []*complaint.Attachment{att})
		})
		return p.record(c, history.Entry{
			Action: complaint.ActionAttachmentRemoved,
			Old:    &att.OriginalName,
			Metadata: map[string]any{
				history.MetaAttachmentID: att.ID.String(),
				history.MetaOriginalName: att.OriginalName,
				history.MetaStoredName:   att.StoredName,
				history.MetaChecksum:     att.Checksum,
			},
		})
	})
}

func (o *Orchestrator) deleteFiles(ctx context.Context, c *complaint.Complaint, atts []*complaint.Attachment) []string {
	var warnings []string
	for _, a := range atts {
		if err := o.store.Delete(ctx, a.RelativePath); err != nil {
			o.logger.Warn().Err(err).
				Str("trackingNumber", c.TrackingNumber).
				Str("path", a.RelativePath).
				Msg("attachment file not removed")
			warnings = append(warnings, fmt.Sprintf("file for attachment %s could not be removed: %v", a.ID, err))
		}
	}
	return warnings
}

// Delete removes a complaint with its requests and attachments. Its history
// is kept and closed with a DELETED entry. Locked complaints can only be
// deleted by an admin.
func (o *Orchestrator) Delete(ctx context.Context, in DeleteInput) (*Result, error) {
	start := time.Now()
	cmd := command{name: CmdDelete, complaintID: in.ComplaintID, actor: in.Actor, expected: in.ExpectedVersion}
	res, err := o.delete(ctx, in)
	o.observe(cmd, start, err)
	return res, err
}

func (o *Orchestrator) delete(ctx context.Context, in DeleteInput) (*Result, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	c, err := o.load(ctx, in.ComplaintID)
	if err != nil {
		return nil, err
	}
	if err := o.guard.Check(c, in.ExpectedVersion); err != nil {
		return nil, err
	}
	if c.Locked && in.Actor.Kind != complaint.ActorAdmin {
		owner := ""
		if c.LockOwnerID != nil {
			owner = *c.LockOwnerID
		}
		return nil, complaint.NewLockedError(c.TrackingNumber, owner)
	}
	atts, err := o.repo.ListAttachments(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	at := o.now()
	tombstone, err := o.recorder.Append(c, in.Actor, at, history.Deleted(c.Status, len(atts)))
	if err != nil {
		return nil, err
	}
	if err := o.repo.Delete(ctx, c.ID, in.ExpectedVersion, tombstone); err != nil {
		return nil, err
	}
	return &Result{
		Complaint:    c,
		Warnings:     o.deleteFiles(context.WithoutCancel(ctx), c, atts),
		Notification: o.emit(notification.EventComplaintDeleted, c, in.Actor, at),
	}, nil
}

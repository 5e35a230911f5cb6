package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/application/concurrency"
	"github.com/complaint-hub/complaint-hub/internal/application/history"
	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/metrics"
)

// Command names used for metrics and logs.
const (
	CmdCreate           = "create"
	CmdTransition       = "transition-status"
	CmdUpdateFields     = "update-fields"
	CmdRequestInfo      = "request-information"
	CmdRespondInfo      = "respond-information"
	CmdCancelInfo       = "cancel-information"
	CmdAddAttachment    = "add-attachment"
	CmdRemoveAttachment = "remove-attachment"
	CmdDelete           = "delete"
)

// Result is what a successful command returns. Warnings carry degraded
// success, such as a file that could not be removed after the commit.
type Result struct {
	Complaint    *complaint.Complaint          `json:"complaint"`
	Notification *notification.Fact            `json:"notification,omitempty"`
	Request      *complaint.InformationRequest `json:"informationRequest,omitempty"`
	Attachment   *complaint.Attachment         `json:"attachment,omitempty"`
	Warnings     []string                      `json:"warnings,omitempty"`
}

// Orchestrator is the single entry point for complaint commands.
type Orchestrator struct {
	repo       complaint.Repository
	store      attachment.Store
	guard      *concurrency.Controller
	recorder   *history.Recorder
	dispatcher notification.Dispatcher
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     zerolog.Logger
}

func NewOrchestrator(
	repo complaint.Repository,
	store attachment.Store,
	recorder *history.Recorder,
	dispatcher notification.Dispatcher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	l := logger.With().Str("service", "lifecycle").Logger()
	return &Orchestrator{
		repo:       repo,
		store:      store,
		guard:      concurrency.NewController(repo, logger),
		recorder:   recorder,
		dispatcher: dispatcher,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     l,
	}
}

// WithClock overrides the time source.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// command identifies one mutation of an existing complaint.
type command struct {
	name        string
	complaintID uuid.UUID
	actor       complaint.Actor
	expected    int64
	event       notification.EventKind
}

// op collects what a mutation writes and the side effects around the commit.
type op struct {
	o          *Orchestrator
	actor      complaint.Actor
	at         time.Time
	change     *complaint.Change
	compensate []func(context.Context)
	after      []func(context.Context) []string
	result     Result
}

func (p *op) record(c *complaint.Complaint, e history.Entry) error {
	h, err := p.o.recorder.Append(c, p.actor, p.at, e)
	if err != nil {
		return err
	}
	p.change.History = append(p.change.History, h)
	return nil
}

type mutation func(ctx context.Context, c *complaint.Complaint, p *op) error

// execute runs the load, version check, lock check, mutate, commit and
// notify steps shared by every command on an existing complaint.
func (o *Orchestrator) execute(ctx context.Context, cmd command, mutate mutation) (*Result, error) {
	start := time.Now()
	res, err := o.run(ctx, cmd, mutate)
	o.observe(cmd, start, err)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, cmd command, mutate mutation) (*Result, error) {
	if err := cmd.actor.Validate(); err != nil {
		return nil, err
	}
	c, err := o.load(ctx, cmd.complaintID)
	if err != nil {
		return nil, err
	}
	if err := o.guard.Check(c, cmd.expected); err != nil {
		return nil, err
	}
	if err := c.CheckLock(cmd.actor); err != nil {
		return nil, err
	}

	p := &op{
		o:      o,
		actor:  cmd.actor,
		at:     o.now(),
		change: &complaint.Change{Complaint: c, ExpectedVersion: cmd.expected},
	}
	if err := mutate(ctx, c, p); err != nil {
		p.rollback(ctx)
		return nil, err
	}
	if err := o.guard.Commit(ctx, p.change); err != nil {
		p.rollback(ctx)
		return nil, err
	}

	res := p.result
	res.Complaint = c
	for _, fn := range p.after {
		res.Warnings = append(res.Warnings, fn(context.WithoutCancel(ctx))...)
	}
	res.Notification = o.emit(cmd.event, c, cmd.actor, p.at)
	return &res, nil
}

func (p *op) rollback(ctx context.Context) {
	for i := len(p.compensate) - 1; i >= 0; i-- {
		p.compensate[i](context.WithoutCancel(ctx))
	}
}

func (o *Orchestrator) load(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	c, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	if c == nil {
		return nil, complaint.NewNotFoundError("complaint", id.String())
	}
	return c, nil
}

func (o *Orchestrator) emit(kind notification.EventKind, c *complaint.Complaint, actor complaint.Actor, at time.Time) *notification.Fact {
	fact := notification.NewFact(kind, c, actor, at)
	if o.dispatcher != nil {
		o.dispatcher.Emit(fact)
	}
	return fact
}

func (o *Orchestrator) observe(cmd command, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(complaint.CodeOf(err))
	}
	o.metrics.ObserveCommand(cmd.name, outcome, start)

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = o.logger.Debug()
	case errors.Is(err, complaint.ErrConcurrentModification):
		o.metrics.IncVersionConflict()
		ev = o.logger.Warn().Err(err)
	case errors.Is(err, complaint.ErrLocked):
		o.metrics.IncLockRefusal()
		ev = o.logger.Warn().Err(err)
	case errors.Is(err, complaint.ErrStorage), complaint.CodeOf(err) == complaint.CodeInternal:
		ev = o.logger.Error().Err(err)
	default:
		ev = o.logger.Info().Err(err)
	}
	ev.Str("command", cmd.name).
		Str("complaintId", cmd.complaintID.String()).
		Str("actor", cmd.actor.String()).
		Int64("expectedVersion", cmd.expected).
		Dur("duration", time.Since(start)).
		Msg("command finished")
}

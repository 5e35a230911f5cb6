package concurrency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

// Controller is the optimistic version guard in front of the repository.
type Controller struct {
	repo   complaint.Repository
	logger zerolog.Logger
}

func NewController(repo complaint.Repository, logger zerolog.Logger) *Controller {
	return &Controller{
		repo:   repo,
		logger: logger.With().Str("service", "concurrency").Logger(),
	}
}

// Check compares the loaded version with what the caller last observed.
func (c *Controller) Check(current *complaint.Complaint, expected int64) error {
	if current.Version != expected {
		return complaint.NewConcurrentModificationError(expected, current.Version)
	}
	return nil
}

// Commit bumps the version by one and persists the change in a single
// atomic step. The repository re-checks the stored version, so a racer
// that passed Check on the same version loses here.
func (c *Controller) Commit(ctx context.Context, change *complaint.Change) error {
	if change == nil || change.Complaint == nil {
		return fmt.Errorf("commit: empty change")
	}
	agg := change.Complaint
	if agg.Version != change.ExpectedVersion {
		return complaint.NewConcurrentModificationError(change.ExpectedVersion, agg.Version)
	}
	agg.Version = change.ExpectedVersion + 1
	if err := agg.CheckInvariants(); err != nil {
		agg.Version = change.ExpectedVersion
		return fmt.Errorf("commit: %w", err)
	}
	if err := c.repo.Commit(ctx, change); err != nil {
		agg.Version = change.ExpectedVersion
		if errors.Is(err, complaint.ErrConcurrentModification) {
			c.logger.Debug().
				Str("complaintId", agg.ID.String()).
				Int64("expectedVersion", change.ExpectedVersion).
				Msg("version conflict")
		}
		return err
	}
	return nil
}

// RetryOnConflict runs fn up to attempts times while it fails with a
// concurrent-modification error. fn must reload state on every call.
// It is exported for in-process callers of the lifecycle package, such as
// batch tools, that choose the expected version themselves; the HTTP adapter
// returns conflicts to the client and never retries them.
func RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, complaint.ErrConcurrentModification) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
	}
	return err
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * 5 * time.Millisecond
	if d > 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	return d
}

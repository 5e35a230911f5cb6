package concurrency

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint/mocks"
)

func pending(version int64) *complaint.Complaint {
	return &complaint.Complaint{ID: uuid.New(), TrackingNumber: "CMP-1", Status: complaint.StatusPending, Version: version}
}

func TestController_Check(t *testing.T) {
	ctrl := NewController(new(mocks.MockRepository), zerolog.Nop())

	assert.NoError(t, ctrl.Check(pending(3), 3))
	assert.ErrorIs(t, ctrl.Check(pending(3), 2), complaint.ErrConcurrentModification)
}

func TestController_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps version by one", func(t *testing.T) {
		repo := new(mocks.MockRepository)
		ctrl := NewController(repo, zerolog.Nop())
		c := pending(4)
		change := &complaint.Change{Complaint: c, ExpectedVersion: 4}

		repo.On("Commit", ctx, mock.MatchedBy(func(ch *complaint.Change) bool {
			return ch.Complaint.Version == 5 && ch.ExpectedVersion == 4
		})).Return(nil)

		require.NoError(t, ctrl.Commit(ctx, change))
		assert.Equal(t, int64(5), c.Version)
		repo.AssertExpectations(t)
	})

	t.Run("restores version when the store refuses", func(t *testing.T) {
		repo := new(mocks.MockRepository)
		ctrl := NewController(repo, zerolog.Nop())
		c := pending(4)

		repo.On("Commit", ctx, mock.Anything).Return(complaint.NewConcurrentModificationError(4, 5))

		err := ctrl.Commit(ctx, &complaint.Change{Complaint: c, ExpectedVersion: 4})

		assert.ErrorIs(t, err, complaint.ErrConcurrentModification)
		assert.Equal(t, int64(4), c.Version)
	})

	t.Run("refuses aggregates that break the lock invariant", func(t *testing.T) {
		repo := new(mocks.MockRepository)
		ctrl := NewController(repo, zerolog.Nop())
		c := pending(0)
		c.Locked = true

		err := ctrl.Commit(ctx, &complaint.Change{Complaint: c, ExpectedVersion: 0})

		assert.Error(t, err)
		assert.Equal(t, int64(0), c.Version)
		repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	})

	t.Run("stale aggregate", func(t *testing.T) {
		ctrl := NewController(new(mocks.MockRepository), zerolog.Nop())

		err := ctrl.Commit(ctx, &complaint.Change{Complaint: pending(2), ExpectedVersion: 1})

		assert.ErrorIs(t, err, complaint.ErrConcurrentModification)
	})
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := RetryOnConflict(ctx, 3, func(context.Context) error {
			calls++
			if calls < 3 {
				return complaint.NewConcurrentModificationError(1, 2)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := RetryOnConflict(ctx, 5, func(context.Context) error {
			calls++
			return complaint.NewLockedError("CMP-1", "emp-1")
		})
		assert.ErrorIs(t, err, complaint.ErrLocked)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := RetryOnConflict(ctx, 2, func(context.Context) error {
			calls++
			return complaint.NewConcurrentModificationError(1, 2)
		})
		assert.ErrorIs(t, err, complaint.ErrConcurrentModification)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryOnConflict(cctx, 3, func(context.Context) error { return errors.New("unreachable") })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

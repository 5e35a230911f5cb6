package complaint

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	citizen  = Actor{Kind: ActorCitizen, ID: "cit-1", Name: "Citizen"}
	employee = Actor{Kind: ActorEmployee, ID: "emp-1", Name: "Employee"}
	other    = Actor{Kind: ActorEmployee, ID: "emp-2", Name: "Other"}
	admin    = Actor{Kind: ActorAdmin, ID: "adm-1", Name: "Admin"}
)

func newPending(t *testing.T) *Complaint {
	t.Helper()
	c, err := New(citizen, Details{
		Type:        "roads",
		Governorate: "Cairo",
		Agency:      "Roads Authority",
		Description: "pothole",
	}, NewTrackingNumber(time.Now()), time.Now().UTC())
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	c := newPending(t)

	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, int64(0), c.Version)
	assert.False(t, c.Locked)
	assert.Nil(t, c.LockOwnerID)
	assert.Equal(t, "cit-1", c.CitizenID)
	assert.NoError(t, c.CheckInvariants())
}

func TestNew_Validation(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		_, err := New(citizen, Details{Type: "roads"}, "CMP-1", time.Now())
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("filed by employee", func(t *testing.T) {
		_, err := New(employee, Details{Type: "a", Governorate: "b", Agency: "c", Description: "d"}, "CMP-1", time.Now())
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestNewTrackingNumber(t *testing.T) {
	at := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	tn := NewTrackingNumber(at)
	assert.Regexp(t, regexp.MustCompile(`^CMP-20260309-[0-9A-F]{8}$`), tn)
	assert.NotEqual(t, tn, NewTrackingNumber(at))
}

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected, StatusClosed}
	legal := map[[2]Status]bool{
		{StatusPending, StatusInProgress}:  true,
		{StatusInProgress, StatusResolved}: true,
		{StatusInProgress, StatusRejected}: true,
		{StatusResolved, StatusClosed}:     true,
		{StatusRejected, StatusClosed}:     true,
	}
	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to))
			})
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("ARCHIVED")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestComplaint_Transition(t *testing.T) {
	t.Run("start work acquires lock", func(t *testing.T) {
		c := newPending(t)

		change, err := c.Transition(StatusInProgress, employee, time.Now())

		require.NoError(t, err)
		assert.Equal(t, LockAcquired, change)
		assert.True(t, c.Locked)
		require.NotNil(t, c.LockOwnerID)
		assert.Equal(t, "emp-1", *c.LockOwnerID)
		require.NotNil(t, c.AssignedEmployeeID)
		assert.Equal(t, "emp-1", *c.AssignedEmployeeID)
		assert.NoError(t, c.CheckInvariants())
	})

	t.Run("resolve releases lock and keeps assignee", func(t *testing.T) {
		c := newPending(t)
		_, err := c.Transition(StatusInProgress, employee, time.Now())
		require.NoError(t, err)

		change, err := c.Transition(StatusResolved, employee, time.Now())

		require.NoError(t, err)
		assert.Equal(t, LockReleased, change)
		assert.False(t, c.Locked)
		assert.Nil(t, c.LockOwnerID)
		require.NotNil(t, c.AssignedEmployeeID)
		assert.Equal(t, "emp-1", *c.AssignedEmployeeID)
	})

	t.Run("close leaves lock unchanged", func(t *testing.T) {
		c := newPending(t)
		_, _ = c.Transition(StatusInProgress, employee, time.Now())
		_, _ = c.Transition(StatusRejected, employee, time.Now())

		change, err := c.Transition(StatusClosed, admin, time.Now())

		require.NoError(t, err)
		assert.Equal(t, LockUnchanged, change)
		assert.False(t, c.Locked)
	})

	t.Run("skipping a step is refused", func(t *testing.T) {
		c := newPending(t)

		_, err := c.Transition(StatusResolved, employee, time.Now())

		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, CodeInvalidTransition, e.Code)
		assert.Equal(t, StatusPending, e.From)
		assert.Equal(t, StatusResolved, e.To)
		assert.Equal(t, StatusPending, c.Status)
	})

	t.Run("citizen cannot claim", func(t *testing.T) {
		c := newPending(t)

		_, err := c.Transition(StatusInProgress, citizen, time.Now())

		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, StatusPending, c.Status)
		assert.False(t, c.Locked)
		assert.Nil(t, c.LockOwnerID)
		assert.Nil(t, c.AssignedEmployeeID)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		c := newPending(t)
		c.Status = StatusClosed

		_, err := c.Transition(StatusPending, admin, time.Now())

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestComplaint_CheckLock(t *testing.T) {
	c := newPending(t)
	assert.NoError(t, c.CheckLock(other), "unlocked complaints are open to everyone")

	_, err := c.Transition(StatusInProgress, employee, time.Now())
	require.NoError(t, err)

	assert.NoError(t, c.CheckLock(employee))
	assert.NoError(t, c.CheckLock(admin))
	assert.NoError(t, c.CheckLock(citizen))

	err = c.CheckLock(other)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "emp-1")
}

func TestComplaint_ApplyFields(t *testing.T) {
	t.Run("records each changed field", func(t *testing.T) {
		c := newPending(t)
		desc := "deep pothole"
		same := c.Type

		changes, err := c.ApplyFields(FieldUpdate{Type: &same, Description: &desc}, time.Now())

		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, FieldChange{Field: "description", Old: "pothole", New: "deep pothole"}, changes[0])
		assert.Equal(t, "deep pothole", c.Description)
	})

	t.Run("no-op update is rejected", func(t *testing.T) {
		c := newPending(t)
		same := c.Agency

		_, err := c.ApplyFields(FieldUpdate{Agency: &same}, time.Now())

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("terminal complaints are read-only", func(t *testing.T) {
		c := newPending(t)
		c.Status = StatusResolved
		desc := "changed"

		_, err := c.ApplyFields(FieldUpdate{Description: &desc}, time.Now())

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestComplaint_Clone(t *testing.T) {
	c := newPending(t)
	_, _ = c.Transition(StatusInProgress, employee, time.Now())

	cp := c.Clone()
	*cp.LockOwnerID = "someone-else"

	assert.Equal(t, "emp-1", *c.LockOwnerID)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeLocked, CodeOf(NewLockedError("CMP-1", "emp-1")))
	assert.Equal(t, CodeStorage, CodeOf(NewStorageError("write failed", errors.New("disk full"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.True(t, errors.Is(NewConcurrentModificationError(1, 2), ErrConcurrentModification))
	assert.False(t, errors.Is(NewConcurrentModificationError(1, 2), ErrLocked))
}

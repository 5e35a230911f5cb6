package complaint

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents complaint status.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
	StatusClosed     Status = "CLOSED"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {StatusClosed},
	StatusRejected:   {StatusClosed},
	StatusClosed:     {},
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// ParseStatus normalizes and validates a status name.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown status %q", v))
	}
	return s, nil
}

// CanTransition validates a status edge.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LockedFor derives the claim lock from a status.
func LockedFor(s Status) bool {
	return s == StatusInProgress
}

// LockChange describes how a transition moved the claim lock.
type LockChange int

const (
	LockUnchanged LockChange = iota
	LockAcquired
	LockReleased
)

// Timestamps is the audit-time block embedded in each aggregate.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch moves UpdatedAt forward.
func (t *Timestamps) Touch(at time.Time) {
	t.UpdatedAt = at
}

// Complaint is the aggregate root of the lifecycle engine.
type Complaint struct {
	ID                 uuid.UUID  `json:"id"`
	TrackingNumber     string     `json:"trackingNumber"`
	Type               string     `json:"type"`
	Governorate        string     `json:"governorate"`
	Agency             string     `json:"agency"`
	Description        string     `json:"description"`
	Status             Status     `json:"status"`
	Version            int64      `json:"version"`
	Locked             bool       `json:"locked"`
	LockOwnerID        *string    `json:"lockOwnerId,omitempty"`
	CitizenID          string     `json:"citizenId"`
	AssignedEmployeeID *string    `json:"assignedEmployeeId,omitempty"`
	Response           *string    `json:"response,omitempty"`
	RespondedAt        *time.Time `json:"respondedAt,omitempty"`
	HistorySeq         int64      `json:"historySeq"`
	Timestamps
}

// Details carries the citizen-supplied fields of a complaint.
type Details struct {
	Type        string
	Governorate string
	Agency      string
	Description string
}

// Validate checks that every detail field is present.
func (d Details) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(d.Governorate) == "" {
		missing = append(missing, "governorate")
	}
	if strings.TrimSpace(d.Agency) == "" {
		missing = append(missing, "agency")
	}
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// New builds a PENDING complaint at version 0.
func New(citizen Actor, d Details, trackingNumber string, at time.Time) (*Complaint, error) {
	if citizen.Kind != ActorCitizen {
		return nil, NewValidationError("complaints are filed by citizens")
	}
	if err := citizen.Validate(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(trackingNumber) == "" {
		return nil, NewValidationError("tracking number is required")
	}
	return &Complaint{
		ID:             uuid.New(),
		TrackingNumber: trackingNumber,
		Type:           strings.TrimSpace(d.Type),
		Governorate:    strings.TrimSpace(d.Governorate),
		Agency:         strings.TrimSpace(d.Agency),
		Description:    strings.TrimSpace(d.Description),
		Status:         StatusPending,
		CitizenID:      citizen.ID,
		Timestamps:     Timestamps{CreatedAt: at, UpdatedAt: at},
	}, nil
}

// NewTrackingNumber issues a public tracking number for a complaint filed at the given time.
func NewTrackingNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "CMP-" + at.UTC().Format("20060102") + "-" + suffix
}

// CheckInvariants verifies the lock invariant.
func (c *Complaint) CheckInvariants() error {
	if c.Locked != LockedFor(c.Status) {
		return fmt.Errorf("complaint %s: locked=%t with status %s", c.ID, c.Locked, c.Status)
	}
	if c.Locked && c.LockOwnerID == nil {
		return fmt.Errorf("complaint %s: locked without owner", c.ID)
	}
	return nil
}

// CheckLock rejects employees who do not own the claim lock.
// Admins override the lock; citizens are not bound by it.
func (c *Complaint) CheckLock(actor Actor) error {
	if !c.Locked {
		return nil
	}
	switch actor.Kind {
	case ActorAdmin, ActorCitizen:
		return nil
	}
	if c.LockOwnerID != nil && *c.LockOwnerID == actor.ID {
		return nil
	}
	owner := ""
	if c.LockOwnerID != nil {
		owner = *c.LockOwnerID
	}
	return NewLockedError(c.TrackingNumber, owner)
}

// Transition applies a status edge and derives the new lock state.
func (c *Complaint) Transition(target Status, actor Actor, at time.Time) (LockChange, error) {
	if !target.Valid() {
		return LockUnchanged, NewValidationError(fmt.Sprintf("unknown status %q", target))
	}
	if !CanTransition(c.Status, target) {
		return LockUnchanged, NewInvalidTransitionError(c.Status, target)
	}
	if LockedFor(target) && !c.Locked && !actor.IsStaff() {
		return LockUnchanged, NewValidationError("only staff can take a complaint into progress")
	}
	wasLocked := c.Locked
	c.Status = target
	c.Locked = LockedFor(target)
	c.Touch(at)

	switch {
	case !wasLocked && c.Locked:
		owner, assignee := actor.ID, actor.ID
		c.LockOwnerID = &owner
		c.AssignedEmployeeID = &assignee
		return LockAcquired, nil
	case wasLocked && !c.Locked:
		c.LockOwnerID = nil
		return LockReleased, nil
	}
	return LockUnchanged, nil
}

// SetResponse records the outcome text given when a case is resolved or rejected.
func (c *Complaint) SetResponse(text string, at time.Time) {
	t := strings.TrimSpace(text)
	c.Response = &t
	c.RespondedAt = &at
}

// Editable reports whether substantive fields may still change.
func (c *Complaint) Editable() bool {
	return c.Status == StatusPending || c.Status == StatusInProgress
}

// FieldUpdate names the detail fields a caller wants to change.
type FieldUpdate struct {
	Type        *string
	Governorate *string
	Agency      *string
	Description *string
}

// FieldChange is one field-level diff.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ApplyFields changes detail fields and returns the diff in a stable order.
func (c *Complaint) ApplyFields(u FieldUpdate, at time.Time) ([]FieldChange, error) {
	if !c.Editable() {
		return nil, NewInvalidTransitionError(c.Status, c.Status).WithMessage(
			fmt.Sprintf("complaint %s cannot be edited in status %s", c.TrackingNumber, c.Status))
	}
	var changes []FieldChange
	apply := func(name string, in *string, cur *string) error {
		if in == nil {
			return nil
		}
		v := strings.TrimSpace(*in)
		if v == "" {
			return NewValidationError(name + " must not be empty")
		}
		if v != *cur {
			changes = append(changes, FieldChange{Field: name, Old: *cur, New: v})
			*cur = v
		}
		return nil
	}
	if err := apply("type", u.Type, &c.Type); err != nil {
		return nil, err
	}
	if err := apply("governorate", u.Governorate, &c.Governorate); err != nil {
		return nil, err
	}
	if err := apply("agency", u.Agency, &c.Agency); err != nil {
		return nil, err
	}
	if err := apply("description", u.Description, &c.Description); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, NewValidationError("no field changes")
	}
	c.Touch(at)
	return changes, nil
}

// Clone returns a deep copy.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	out.LockOwnerID = cloneString(c.LockOwnerID)
	out.AssignedEmployeeID = cloneString(c.AssignedEmployeeID)
	out.Response = cloneString(c.Response)
	if c.RespondedAt != nil {
		t := *c.RespondedAt
		out.RespondedAt = &t
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

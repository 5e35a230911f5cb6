package complaint

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestStatus represents information request status.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestResponded RequestStatus = "RESPONDED"
	RequestCancelled RequestStatus = "CANCELLED"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestResponded, RequestCancelled},
	RequestResponded: {},
	RequestCancelled: {},
}

// InformationRequest asks the citizen for more detail while a case is worked.
type InformationRequest struct {
	ID          uuid.UUID     `json:"id"`
	ComplaintID uuid.UUID     `json:"complaintId"`
	Status      RequestStatus `json:"status"`
	Question    string        `json:"question"`
	Answer      *string       `json:"answer,omitempty"`
	Reason      *string       `json:"reason,omitempty"`
	RequestedBy string        `json:"requestedBy"`
	RequestedAt time.Time     `json:"requestedAt"`
	ClosedBy    *string       `json:"closedBy,omitempty"`
	ClosedAt    *time.Time    `json:"closedAt,omitempty"`
}

// CanTransitionTo validates request status transitions.
func (r *InformationRequest) CanTransitionTo(target RequestStatus) bool {
	for _, s := range requestTransitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// OpenInformationRequest creates a PENDING request on an in-progress complaint.
// pending is the complaint's current open request, if any.
func OpenInformationRequest(c *Complaint, pending *InformationRequest, actor Actor, question string, at time.Time) (*InformationRequest, error) {
	if c.Status != StatusInProgress {
		return nil, NewInvalidTransitionError(c.Status, c.Status).WithMessage(
			fmt.Sprintf("information requests need an IN_PROGRESS complaint, %s is %s", c.TrackingNumber, c.Status))
	}
	if !actor.IsStaff() {
		return nil, NewValidationError("only staff can request information")
	}
	if pending != nil {
		return nil, NewDuplicateRequestError()
	}
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, NewValidationError("question is required")
	}
	return &InformationRequest{
		ID:          uuid.New(),
		ComplaintID: c.ID,
		Status:      RequestPending,
		Question:    q,
		RequestedBy: actor.ID,
		RequestedAt: at,
	}, nil
}

// Respond records the citizen's answer.
func (r *InformationRequest) Respond(actor Actor, answer string, at time.Time) error {
	if !r.CanTransitionTo(RequestResponded) {
		return r.closedError()
	}
	a := strings.TrimSpace(answer)
	if a == "" {
		return NewValidationError("answer is required")
	}
	r.Status = RequestResponded
	r.Answer = &a
	r.close(actor, at)
	return nil
}

// Cancel withdraws the request.
func (r *InformationRequest) Cancel(actor Actor, reason string, at time.Time) error {
	if !r.CanTransitionTo(RequestCancelled) {
		return r.closedError()
	}
	r.Status = RequestCancelled
	if s := strings.TrimSpace(reason); s != "" {
		r.Reason = &s
	}
	r.close(actor, at)
	return nil
}

func (r *InformationRequest) close(actor Actor, at time.Time) {
	by := actor.ID
	r.ClosedBy = &by
	r.ClosedAt = &at
}

func (r *InformationRequest) closedError() error {
	return (&Error{Code: CodeInvalidTransition}).WithMessage(
		fmt.Sprintf("information request %s is already %s", r.ID, r.Status))
}

// Clone returns a deep copy.
func (r *InformationRequest) Clone() *InformationRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Answer = cloneString(r.Answer)
	out.Reason = cloneString(r.Reason)
	out.ClosedBy = cloneString(r.ClosedBy)
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		out.ClosedAt = &t
	}
	return &out
}

package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

// EventKind is what happened to a complaint.
type EventKind string

const (
	EventComplaintCreated     EventKind = "COMPLAINT_CREATED"
	EventStatusChanged        EventKind = "STATUS_CHANGED"
	EventFieldsUpdated        EventKind = "FIELDS_UPDATED"
	EventInfoRequested        EventKind = "INFO_REQUESTED"
	EventInfoProvided         EventKind = "INFO_PROVIDED"
	EventInfoRequestCancelled EventKind = "INFO_REQUEST_CANCELLED"
	EventAttachmentAdded      EventKind = "ATTACHMENT_ADDED"
	EventAttachmentRemoved    EventKind = "ATTACHMENT_REMOVED"
	EventComplaintDeleted     EventKind = "COMPLAINT_DELETED"
)

// RecipientType is who a fact is addressed to.
type RecipientType string

const (
	RecipientCitizen  RecipientType = "CITIZEN"
	RecipientEmployee RecipientType = "EMPLOYEE"
	RecipientAgency   RecipientType = "AGENCY"
)

// Fact describes what happened to whom. It is produced by a successful
// command and delivered asynchronously.
type Fact struct {
	ID             uuid.UUID           `json:"id"`
	EventKind      EventKind           `json:"eventKind"`
	ComplaintID    uuid.UUID           `json:"complaintId"`
	TrackingNumber string              `json:"trackingNumber"`
	Status         complaint.Status    `json:"status"`
	Version        int64               `json:"version"`
	ActorID        string              `json:"actorId"`
	ActorKind      complaint.ActorKind `json:"actorKind"`
	RecipientID    string              `json:"recipientId"`
	RecipientType  RecipientType       `json:"recipientType"`
	OccurredAt     time.Time           `json:"occurredAt"`
}

// NewFact addresses an event on c by actor to the party that should hear about it.
// Staff actions notify the citizen; citizen actions notify the assigned
// employee, or the agency when nobody is assigned yet.
func NewFact(kind EventKind, c *complaint.Complaint, actor complaint.Actor, at time.Time) *Fact {
	f := &Fact{
		ID:             uuid.New(),
		EventKind:      kind,
		ComplaintID:    c.ID,
		TrackingNumber: c.TrackingNumber,
		Status:         c.Status,
		Version:        c.Version,
		ActorID:        actor.ID,
		ActorKind:      actor.Kind,
		OccurredAt:     at,
	}
	switch {
	case actor.IsStaff():
		f.RecipientID = c.CitizenID
		f.RecipientType = RecipientCitizen
	case c.AssignedEmployeeID != nil:
		f.RecipientID = *c.AssignedEmployeeID
		f.RecipientType = RecipientEmployee
	default:
		f.RecipientID = c.Agency
		f.RecipientType = RecipientAgency
	}
	return f
}

// Params exposes the fact to routing expressions.
func (f *Fact) Params() map[string]interface{} {
	return map[string]interface{}{
		"eventKind":      string(f.EventKind),
		"trackingNumber": f.TrackingNumber,
		"status":         string(f.Status),
		"version":        float64(f.Version),
		"actorId":        f.ActorID,
		"actorKind":      string(f.ActorKind),
		"recipientId":    f.RecipientID,
		"recipientType":  string(f.RecipientType),
	}
}

// DeliveryFailure is the out-of-band record of a fact that did not reach a sink.
type DeliveryFailure struct {
	ID          int64           `json:"id"`
	FactID      uuid.UUID       `json:"factId"`
	Sink        string          `json:"sink"`
	EventKind   EventKind       `json:"eventKind"`
	ComplaintID uuid.UUID       `json:"complaintId"`
	RecipientID string          `json:"recipientId"`
	Error       string          `json:"error"`
	Payload     json.RawMessage `json:"payload"`
	FailedAt    time.Time       `json:"failedAt"`
}

// NewDeliveryFailure builds a failure record for fact at sink.
func NewDeliveryFailure(fact *Fact, sink string, cause error) *DeliveryFailure {
	payload, _ := json.Marshal(fact)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &DeliveryFailure{
		FactID:      fact.ID,
		Sink:        sink,
		EventKind:   fact.EventKind,
		ComplaintID: fact.ComplaintID,
		RecipientID: fact.RecipientID,
		Error:       msg,
		Payload:     payload,
		FailedAt:    time.Now().UTC(),
	}
}

// Subscriber is a live stream attached to one recipient.
type Subscriber struct {
	ID          string
	RecipientID string
	ConnectedAt time.Time
	Messages    chan *Message
}

// NewSubscriber creates a subscriber with a buffered channel.
func NewSubscriber(id, recipientID string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 100
	}
	return &Subscriber{
		ID:          id,
		RecipientID: recipientID,
		ConnectedAt: time.Now().UTC(),
		Messages:    make(chan *Message, buffer),
	}
}

// Close closes the subscriber's channel.
func (s *Subscriber) Close() {
	close(s.Messages)
}

// Message is one server-sent event.
type Message struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMessage wraps a fact as an SSE message.
func NewMessage(fact *Fact) (*Message, error) {
	data, err := json.Marshal(fact)
	if err != nil {
		return nil, err
	}
	return &Message{ID: fact.ID.String(), Event: string(fact.EventKind), Data: data}, nil
}

package sse

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

// Hub manages live notification streams and acts as a dispatch sink.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*notification.Subscriber
	logger      zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*notification.Subscriber),
		logger:      logger.With().Str("component", "sse").Logger(),
	}
}

func (h *Hub) Register(s *notification.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[s.ID] = s
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subscribers[id]; ok {
		s.Close()
		delete(h.subscribers, id)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// SendToRecipient queues message for every stream of a recipient and
// returns how many accepted it. Full streams are skipped.
func (h *Hub) SendToRecipient(recipientID string, message *notification.Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, s := range h.subscribers {
		if s.RecipientID != recipientID {
			continue
		}
		if trySend(s, message) {
			sent++
		} else {
			h.logger.Warn().Str("subscriber", s.ID).Str("recipientId", recipientID).Msg("stream buffer full, message skipped")
		}
	}
	return sent
}

func (h *Hub) Name() string { return "sse" }

// Deliver pushes a fact to the recipient's open streams. A recipient with
// no open stream is not a failure.
func (h *Hub) Deliver(ctx context.Context, fact *notification.Fact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := notification.NewMessage(fact)
	if err != nil {
		return err
	}
	h.SendToRecipient(fact.RecipientID, msg)
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subscribers {
		s.Close()
		delete(h.subscribers, id)
	}
}

func trySend(s *notification.Subscriber, msg *notification.Message) bool {
	select {
	case s.Messages <- msg:
		return true
	default:
		return false
	}
}

var _ notification.Sink = (*Hub)(nil)

package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

const streamKeepAlive = 25 * time.Second

// streamNotifications serves facts addressed to recipient_id as server-sent
// events. Non-staff callers can only follow themselves.
func (s *Server) streamNotifications(w http.ResponseWriter, r *http.Request) {
	if s.sseHub == nil {
		respondError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "streaming disabled")
		return
	}
	a := actorFromContext(r.Context())
	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		recipientID = a.ID
	}
	if a.Kind == complaint.ActorCitizen && recipientID != a.ID {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "citizens can only follow their own notifications")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	sub := notification.NewSubscriber(uuid.NewString(), recipientID, s.opts.StreamBuffer)
	s.sseHub.Register(sub)
	defer s.sseHub.Unregister(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case msg, open := <-sub.Messages:
			if !open {
				return
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, msg.Data)
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) listDeliveryFailures(w http.ResponseWriter, r *http.Request) {
	if s.failures == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"items": []*notification.DeliveryFailure{}})
		return
	}
	limit, offset := parseLimitOffset(r, 50, 500)
	list, err := s.failures.ListFailures(r.Context(), limit, offset)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": list, "limit": limit, "offset": offset})
}

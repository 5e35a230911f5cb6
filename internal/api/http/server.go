package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/application/lifecycle"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/sse"
)

// Options tunes the HTTP adapter.
type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	StreamBuffer   int
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	lifecycle *lifecycle.Orchestrator
	failures  notification.FailureRepository
	sseHub    *sse.Hub
	gatherer  prometheus.Gatherer
	opts      Options
	logger    zerolog.Logger
}

func NewServer(
	orchestrator *lifecycle.Orchestrator,
	failures notification.FailureRepository,
	sseHub *sse.Hub,
	gatherer prometheus.Gatherer,
	opts Options,
	logger zerolog.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		lifecycle: orchestrator,
		failures:  failures,
		sseHub:    sseHub,
		gatherer:  gatherer,
		opts:      opts,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireActor)

		// Streams outlive the request timeout.
		r.Get("/notifications/stream", s.streamNotifications)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))

			r.Route("/complaints", func(r chi.Router) {
				r.Post("/", s.createComplaint)
				r.Get("/", s.listComplaints)
				r.Get("/tracking/{trackingNumber}", s.getComplaintByTrackingNumber)

				r.Route("/{complaintId}", func(r chi.Router) {
					r.Get("/", s.getComplaint)
					r.Patch("/", s.updateComplaintFields)
					r.Delete("/", s.deleteComplaint)
					r.Post("/transitions", s.transitionComplaint)

					r.Get("/history", s.listHistory)
					r.Get("/history/verify", s.verifyHistory)
					r.Get("/history/replay", s.replayHistory)

					r.Get("/information-requests", s.listInformationRequests)
					r.Post("/information-requests", s.requestInformation)
					r.Post("/information-requests/{requestId}/respond", s.respondInformationRequest)
					r.Post("/information-requests/{requestId}/cancel", s.cancelInformationRequest)

					r.Get("/attachments", s.listAttachments)
					r.Post("/attachments", s.uploadAttachment)
					r.Get("/attachments/{attachmentId}", s.downloadAttachment)
					r.Delete("/attachments/{attachmentId}", s.removeAttachment)
				})
			})

			r.With(s.requireKind(complaint.ActorAdmin)).Get("/notifications/failures", s.listDeliveryFailures)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// statusFor maps a lifecycle error code to an HTTP status.
func statusFor(code complaint.Code) int {
	switch code {
	case complaint.CodeConcurrentModification, complaint.CodeDuplicateRequest:
		return http.StatusConflict
	case complaint.CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case complaint.CodeLocked:
		return http.StatusLocked
	case complaint.CodeNotFound:
		return http.StatusNotFound
	case complaint.CodeValidation:
		return http.StatusBadRequest
	case complaint.CodeStorage:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondDomainError writes err using its lifecycle code. Internal errors
// are logged and reported without detail.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := complaint.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("request failed")
	}
	msg := "internal error"
	var lerr *complaint.Error
	if errors.As(err, &lerr) {
		msg = lerr.Error()
		if lerr.Message != "" {
			msg = lerr.Message
		}
	}
	respondError(w, status, string(code), msg)
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseExpectedVersion reads the expected_version query parameter used by
// requests without a body.
func parseExpectedVersion(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("expected_version")
	if raw == "" {
		return 0, errors.New("expected_version required")
	}
	return strconv.ParseInt(raw, 10, 64)
}

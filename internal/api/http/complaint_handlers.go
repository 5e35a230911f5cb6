package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complaint-hub/complaint-hub/internal/application/lifecycle"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

type createComplaintRequest struct {
	Type        string `json:"type"`
	Governorate string `json:"governorate"`
	Agency      string `json:"agency"`
	Description string `json:"description"`
}

type transitionRequest struct {
	ExpectedVersion *int64 `json:"expectedVersion"`
	Status          string `json:"status"`
	Response        string `json:"response"`
}

type updateFieldsRequest struct {
	ExpectedVersion *int64  `json:"expectedVersion"`
	Type            *string `json:"type"`
	Governorate     *string `json:"governorate"`
	Agency          *string `json:"agency"`
	Description     *string `json:"description"`
}

type informationRequestRequest struct {
	ExpectedVersion *int64 `json:"expectedVersion"`
	Question        string `json:"question"`
}

type informationResponseRequest struct {
	ExpectedVersion *int64 `json:"expectedVersion"`
	Answer          string `json:"answer"`
}

type informationCancelRequest struct {
	ExpectedVersion *int64 `json:"expectedVersion"`
	Reason          string `json:"reason"`
}

var errExpectedVersion = errors.New("expectedVersion required")

func (s *Server) complaintID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUIDParam(r, "complaintId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid complaintId")
		return uuid.Nil, false
	}
	return id, true
}

// decodeCommand decodes a command body and its required expectedVersion.
func decodeCommand(w http.ResponseWriter, r *http.Request, v interface{}, version func() *int64) (int64, bool) {
	if err := decodeBody(r, v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return 0, false
	}
	ev := version()
	if ev == nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", errExpectedVersion.Error())
		return 0, false
	}
	return *ev, true
}

func (s *Server) createComplaint(w http.ResponseWriter, r *http.Request) {
	var req createComplaintRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	res, err := s.lifecycle.Create(r.Context(), lifecycle.CreateInput{
		Actor: *actorFromContext(r.Context()),
		Details: complaint.Details{
			Type:        req.Type,
			Governorate: req.Governorate,
			Agency:      req.Agency,
			Description: req.Description,
		},
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) listComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f complaint.Filter
	if v := q.Get("status"); v != "" {
		st, err := complaint.ParseStatus(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		f.Status = &st
	}
	if v := q.Get("citizen_id"); v != "" {
		f.CitizenID = &v
	}
	if v := q.Get("employee_id"); v != "" {
		f.AssignedEmployeeID = &v
	}
	if v := q.Get("agency"); v != "" {
		f.Agency = &v
	}
	// Citizens only see their own complaints.
	if a := actorFromContext(r.Context()); a.Kind == complaint.ActorCitizen {
		id := a.ID
		f.CitizenID = &id
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	list, err := s.lifecycle.List(r.Context(), f, limit, offset)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": list, "limit": limit, "offset": offset})
}

func (s *Server) getComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	c, err := s.lifecycle.Get(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) getComplaintByTrackingNumber(w http.ResponseWriter, r *http.Request) {
	c, err := s.lifecycle.GetByTrackingNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) transitionComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	ev, ok := decodeCommand(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	target, err := complaint.ParseStatus(req.Status)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	res, err := s.lifecycle.TransitionStatus(r.Context(), lifecycle.TransitionInput{
		ComplaintID:     id,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		Target:          target,
		Response:        req.Response,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) updateComplaintFields(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	var req updateFieldsRequest
	ev, ok := decodeCommand(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	res, err := s.lifecycle.UpdateFields(r.Context(), lifecycle.UpdateFieldsInput{
		ComplaintID:     id,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		Fields: complaint.FieldUpdate{
			Type:        req.Type,
			Governorate: req.Governorate,
			Agency:      req.Agency,
			Description: req.Description,
		},
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) deleteComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	ev, err := parseExpectedVersion(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	res, err := s.lifecycle.Delete(r.Context(), lifecycle.DeleteInput{
		ComplaintID:     id,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	entries, err := s.lifecycle.History(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (s *Server) verifyHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	report, err := s.lifecycle.VerifyHistory(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) replayHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	snaps, err := s.lifecycle.Replay(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": snaps})
}

func (s *Server) listInformationRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	list, err := s.lifecycle.InformationRequests(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}

func (s *Server) requestInformation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	var req informationRequestRequest
	ev, ok := decodeCommand(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	res, err := s.lifecycle.RequestInformation(r.Context(), lifecycle.RequestInformationInput{
		ComplaintID:     id,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		Question:        req.Question,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) respondInformationRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	reqID, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req informationResponseRequest
	ev, ok := decodeCommand(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	res, err := s.lifecycle.RespondToInformationRequest(r.Context(), lifecycle.RespondInformationInput{
		ComplaintID:     id,
		RequestID:       reqID,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		Answer:          req.Answer,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) cancelInformationRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	reqID, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req informationCancelRequest
	ev, ok := decodeCommand(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	res, err := s.lifecycle.CancelInformationRequest(r.Context(), lifecycle.CancelInformationInput{
		ComplaintID:     id,
		RequestID:       reqID,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		Reason:          req.Reason,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	list, err := s.lifecycle.Attachments(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}

// uploadAttachment takes a multipart form with a "file" part and an
// "expected_version" field.
func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid multipart form: "+err.Error())
		return
	}
	ev, err := strconv.ParseInt(r.FormValue("expected_version"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "expected_version required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "file required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	res, err := s.lifecycle.AddAttachment(r.Context(), lifecycle.AddAttachmentInput{
		ComplaintID:     id,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
		OriginalName:    header.Filename,
		ContentType:     header.Header.Get("Content-Type"),
		Data:            data,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	attID, err := parseUUIDParam(r, "attachmentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid attachmentId")
		return
	}
	content, err := s.lifecycle.LoadAttachment(r.Context(), id, attID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	name := strings.ReplaceAll(content.Attachment.OriginalName, `"`, "")
	w.Header().Set("Content-Type", content.Attachment.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("X-Checksum", content.Attachment.Checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

func (s *Server) removeAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.complaintID(w, r)
	if !ok {
		return
	}
	attID, err := parseUUIDParam(r, "attachmentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid attachmentId")
		return
	}
	ev, err := parseExpectedVersion(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	res, err := s.lifecycle.RemoveAttachment(r.Context(), lifecycle.RemoveAttachmentInput{
		ComplaintID:     id,
		AttachmentID:    attID,
		Actor:           *actorFromContext(r.Context()),
		ExpectedVersion: ev,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Package server exposes the citizen and admin HTTP API over the intake
// pipeline and the complaints repository.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/observability"
	"grievance-intake/internal/complaints"
	"grievance-intake/internal/departments"
	"grievance-intake/internal/intake"
)

// IntakePipeline runs a submission through the validation gates.
type IntakePipeline interface {
	Process(ctx context.Context, sub intake.Submission) (intake.ValidatedIntake, error)
}

// ComplaintStore is the persistence surface the handlers need.
type ComplaintStore interface {
	Create(ctx context.Context, sub intake.Submission, v intake.ValidatedIntake) (complaints.Complaint, error)
	TrackByTicket(ctx context.Context, ticket string) (complaints.Complaint, error)
	List(ctx context.Context, f complaints.Filter) ([]complaints.Complaint, error)
	UpdateStatus(ctx context.Context, id int64, status string) (complaints.Complaint, error)
	Reports(ctx context.Context) (complaints.Report, error)
}

// Notifier delivers status-change notifications to submitters.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, c complaints.Complaint) error
}

type Server struct {
	pipeline IntakePipeline
	store    ComplaintStore
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
}

func New(pipeline IntakePipeline, store ComplaintStore, notifier Notifier, obs *observability.Observability, log logger.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		store:    store,
		notifier: notifier,
		obs:      obs,
		logger:   log.With(map[string]interface{}{"component": "http-server"}),
	}
}

// Routes wires every endpoint onto a fresh mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/complaints", s.handleSubmit)
	mux.HandleFunc("GET /api/complaints/{ticket}", s.handleTrack)
	mux.HandleFunc("GET /api/departments", s.handleDepartments)
	mux.HandleFunc("GET /api/admin/complaints", s.handleAdminList)
	mux.HandleFunc("POST /api/admin/complaints/{id}/status", s.handleStatusUpdate)
	mux.HandleFunc("GET /api/admin/reports", s.handleReports)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type submitRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Complaint string `json:"complaint"`
	Address   string `json:"address"`
	Image     string `json:"image"`
}

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TicketNumber string `json:"ticket_number,omitempty"`
	Department   string `json:"department,omitempty"`
	Address      string `json:"address,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Complaint) == "" {
		s.writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: "Complaint text is required"})
		return
	}

	sub := intake.Submission{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Description: req.Complaint,
		Address:     req.Address,
		Image:       req.Image,
	}

	validated, err := s.pipeline.Process(r.Context(), sub)
	if err != nil {
		outcome := "error"
		if stderrors.IsGateRejection(err) {
			outcome = "rejected"
		}
		s.obs.RecordSubmission(r.Context(), outcome)
		s.obs.RecordSubmissionDuration(r.Context(), time.Since(start), outcome)
		s.writeError(w, err)
		return
	}

	c, err := s.store.Create(r.Context(), sub, validated)
	if err != nil {
		s.obs.RecordSubmission(r.Context(), "error")
		s.obs.RecordSubmissionDuration(r.Context(), time.Since(start), "error")
		s.writeError(w, err)
		return
	}

	s.obs.RecordSubmission(r.Context(), "accepted")
	s.obs.RecordSubmissionDuration(r.Context(), time.Since(start), "accepted")
	s.writeJSON(w, http.StatusCreated, submitResponse{
		Success:      true,
		Message:      "Complaint submitted successfully",
		TicketNumber: c.TicketNumber,
		Department:   c.DepartmentName,
		Address:      c.Address,
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	ticket := r.PathValue("ticket")
	c, err := s.store.TrackByTicket(r.Context(), ticket)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"complaint": c,
	})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"departments": departments.All,
	})
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.store.List(r.Context(), complaints.Filter{
		Department: q.Get("department"),
		Status:     q.Get("status"),
		Search:     q.Get("search"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []complaints.Complaint{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"complaints": list,
	})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleStatusUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid complaint id",
		})
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	c, err := s.store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The update has committed; a failed email must not fail the request.
	if err := s.notifier.NotifyStatusChange(r.Context(), c); err != nil {
		s.logger.WithError(err).Warn("status notification failed", map[string]interface{}{
			"ticket": c.TicketNumber,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Status updated successfully",
		"complaint": c,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Reports(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("response encoding failed", nil)
	}
}

// writeError maps a pipeline or repository error onto an HTTP status. Gate
// rejections are client errors; everything else is a server-side failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.IsGateRejection(err):
		status = http.StatusBadRequest
	case stderrors.CodeOf(err) == stderrors.ErrCodeTicketNotFound:
		status = http.StatusNotFound
	case stderrors.CodeOf(err) == stderrors.ErrCodeInvalidStatus:
		status = http.StatusBadRequest
	case stderrors.CodeOf(err) == stderrors.ErrCodeUpstreamService:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.WithError(err).Error("request failed", nil)
	}

	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": stderrors.MessageOf(err),
	})
}

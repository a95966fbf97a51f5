// Package handler exposes the registration workflow over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"regdesk/internal/registration/service"
	domainerrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/platform/middleware/admin"
	"regdesk/pkg/platform/middleware/metadata"
	"regdesk/pkg/platform/middleware/request"
)

const defaultAuditLimit = 50

// Handler wires the workflow service into HTTP routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates the HTTP handler.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated submission route. The health
// endpoint is mounted separately so probes are never rate limited.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/register", h.register)
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// RegisterAdmin mounts the review routes. The caller is expected to guard
// them with the admin identity middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/requests", h.listPending)
	r.Get("/audit", h.listAudit)
	r.Post("/requests/{id}/approve", h.approve)
	r.Post("/requests/{id}/reject", h.reject)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRegister(w, r)
	if !ok {
		return
	}

	admitted, err := h.service.Admit(r.Context(), service.AdmitCommand{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Reason:    req.Reason,
		SourceIP:  metadata.GetClientIP(r.Context()),
		UserAgent: metadata.GetUserAgent(r.Context()),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":      admitted.ID,
		"status":  "pending",
		"message": "Your registration request has been submitted for review.",
	})
}

// decodeRegister accepts either a JSON body or a form post; the registration
// page submits a plain form while API clients send JSON.
func (h *Handler) decodeRegister(w http.ResponseWriter, r *http.Request) (*RegisterRequest, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		return httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, request.GetRequestID(r.Context()))
	}

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid form body"))
		return nil, false
	}
	req := &RegisterRequest{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Reason:    r.PostFormValue("reason"),
	}
	if err := httputil.PrepareRequest(req); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return req, true
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"requests": toRequestResponses(pending),
	})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.service.ListAudit(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": toAuditResponses(entries),
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Approve(r.Context(), id, admin.Reviewer(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "approved",
		"entry":  toAuditResponse(entry),
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	reason := h.decodeRejectReason(r)

	entry, err := h.service.Reject(r.Context(), id, admin.Reviewer(r.Context()), reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "rejected",
		"entry":  toAuditResponse(entry),
	})
}

// decodeRejectReason extracts the optional reason; a missing or malformed
// body falls back to the default reason downstream.
func (h *Handler) decodeRejectReason(r *http.Request) string {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req RejectRequest
		if err := httputil.DecodeInto(r, &req); err != nil {
			return ""
		}
		req.Normalize()
		return req.Reason
	}
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return strings.TrimSpace(r.PostFormValue("reason"))
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "request id must be a positive integer"))
		return 0, false
	}
	return id, true
}

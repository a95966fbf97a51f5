package handler

import (
	"time"

	"regdesk/internal/registration/models"
	"regdesk/pkg/useragent"
)

// RequestResponse is the wire form of a pending registration request.
type RequestResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Reason    string `json:"reason"`
	SourceIP  string `json:"source_ip"`
	Device    string `json:"device"`
	CreatedAt string `json:"created_at"`
}

func toRequestResponse(req models.RegistrationRequest) RequestResponse {
	return RequestResponse{
		ID:        req.ID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Reason:    req.Reason,
		SourceIP:  req.SourceIP,
		Device:    useragent.Summary(req.UserAgent),
		CreatedAt: req.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRequestResponses(reqs []models.RegistrationRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestResponse(req))
	}
	return out
}

// AuditResponse is the wire form of a resolved request.
type AuditResponse struct {
	ID              int64  `json:"id"`
	RequestID       int64  `json:"request_id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Reason          string `json:"reason"`
	Action          string `json:"action"`
	PerformedBy     string `json:"performed_by"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	SourceIP        string `json:"source_ip"`
	Device          string `json:"device"`
	CreatedAt       string `json:"created_at"`
	ReviewedAt      string `json:"reviewed_at"`
}

func toAuditResponse(entry models.AuditEntry) AuditResponse {
	return AuditResponse{
		ID:              entry.ID,
		RequestID:       entry.RequestID,
		Username:        entry.Username,
		Email:           entry.Email,
		FirstName:       entry.FirstName,
		LastName:        entry.LastName,
		Reason:          entry.Reason,
		Action:          string(entry.Action),
		PerformedBy:     entry.PerformedBy,
		RejectionReason: entry.RejectionReason,
		SourceIP:        entry.SourceIP,
		Device:          useragent.Summary(entry.UserAgent),
		CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339),
		ReviewedAt:      entry.ReviewedAt.UTC().Format(time.RFC3339),
	}
}

func toAuditResponses(entries []models.AuditEntry) []AuditResponse {
	out := make([]AuditResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAuditResponse(entry))
	}
	return out
}

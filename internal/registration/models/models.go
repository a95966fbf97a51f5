// Package models defines the registration workflow domain types.
package models

import "time"

// Action is the terminal decision recorded for a registration request.
type Action string

const (
	ActionApproved Action = "APPROVED"
	ActionRejected Action = "REJECTED"
)

// RegistrationRequest is a pending self-service registration awaiting review.
type RegistrationRequest struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Reason    string
	SourceIP  string
	UserAgent string
	CreatedAt time.Time
}

// FullName joins the applicant's given and family names for display and for
// the directory cn attribute.
func (r RegistrationRequest) FullName() string {
	return r.FirstName + " " + r.LastName
}

// AuditEntry is the immutable record of a resolved registration request. It
// carries a full copy of the request so the audit trail survives deletion of
// the pending row.
type AuditEntry struct {
	ID              int64
	RequestID       int64
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Reason          string
	SourceIP        string
	UserAgent       string
	Action          Action
	PerformedBy     string
	RejectionReason string
	CreatedAt       time.Time
	ReviewedAt      time.Time
}

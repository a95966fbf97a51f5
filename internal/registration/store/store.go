// Package store persists registration requests and the audit trail.
package store

import (
	"context"
	"errors"
	"time"

	"regdesk/internal/registration/models"
)

var (
	// ErrNotFound is returned when no pending request matches the given id.
	ErrNotFound = errors.New("registration request not found")
	// ErrDuplicateUsername is returned when a pending request already holds
	// the username.
	ErrDuplicateUsername = errors.New("username already has a pending request")
	// ErrDuplicateEmail is returned when a pending request already holds the
	// email address.
	ErrDuplicateEmail = errors.New("email already has a pending request")
)

// Outcome describes the resolution applied to a pending request.
type Outcome struct {
	Action          models.Action
	PerformedBy     string
	RejectionReason string
	ReviewedAt      time.Time
}

// RequestStore is the persistence boundary for the registration workflow.
// Resolve moves a pending request into the audit trail atomically; callers
// that lose a resolve race observe ErrNotFound.
type RequestStore interface {
	// Admit inserts a new pending request and returns it with ID and
	// CreatedAt populated.
	Admit(ctx context.Context, req models.RegistrationRequest) (models.RegistrationRequest, error)

	// Get returns the pending request with the given id.
	Get(ctx context.Context, id int64) (models.RegistrationRequest, error)

	// ListPending returns all pending requests, newest first.
	ListPending(ctx context.Context) ([]models.RegistrationRequest, error)

	// Resolve records the outcome in the audit trail and removes the
	// pending request in a single atomic step.
	Resolve(ctx context.Context, id int64, outcome Outcome) (models.AuditEntry, error)

	// ListAudit returns audit entries, most recently reviewed first,
	// capped at limit.
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Package notify delivers workflow emails with a durable fallback log.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"regdesk/internal/registration/models"
)

// Sender delivers a single email message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier sends workflow notifications. Delivery failures degrade to the
// fallback log and are never surfaced to the caller; a notification problem
// must not fail the operation that triggered it.
type Notifier struct {
	sender     Sender
	fallback   *FileLog
	adminEmail string
	logger     *slog.Logger
	onFallback func()
}

// New creates a Notifier. sender may be nil, in which case every message goes
// straight to the fallback log.
func New(sender Sender, fallback *FileLog, adminEmail string, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		fallback:   fallback,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// SetFallbackHook registers a function that runs each time a message lands in
// the fallback log. The service uses it to count degraded deliveries.
func (n *Notifier) SetFallbackHook(hook func()) {
	n.onFallback = hook
}

// AdmittedRequest notifies the admin that a new request awaits review.
func (n *Notifier) AdmittedRequest(ctx context.Context, req models.RegistrationRequest) {
	if n.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("New registration request: %s", req.Username)
	body := fmt.Sprintf(
		"A new registration request is awaiting review.\n\n"+
			"Username: %s\nName: %s\nEmail: %s\nReason: %s\n",
		req.Username, req.FullName(), req.Email, req.Reason,
	)
	n.deliver(ctx, n.adminEmail, subject, body)
}

// Approved notifies the applicant that the account exists, including the
// one-time credential. This message is the only place the credential appears.
func (n *Notifier) Approved(ctx context.Context, entry models.AuditEntry, credential string) {
	subject := "Your account has been approved"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your registration request has been approved and your account is ready.\n\n"+
			"Username: %s\nTemporary password: %s\n\n"+
			"Please sign in and change your password immediately.\n",
		entry.FirstName, entry.Username, credential,
	)
	n.deliver(ctx, entry.Email, subject, body)
}

// Rejected notifies the applicant of the rejection and its reason.
func (n *Notifier) Rejected(ctx context.Context, entry models.AuditEntry) {
	subject := "Your registration request was not approved"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your registration request for username %q was not approved.\n\n"+
			"Reason: %s\n",
		entry.FirstName, entry.Username, entry.RejectionReason,
	)
	n.deliver(ctx, entry.Email, subject, body)
}

func (n *Notifier) deliver(ctx context.Context, to, subject, body string) {
	if n.sender != nil {
		err := n.sender.Send(ctx, to, subject, body)
		if err == nil {
			return
		}
		n.logger.Warn("email delivery failed, writing to fallback log",
			"to", to,
			"subject", subject,
			"error", err,
		)
	}

	if n.onFallback != nil {
		n.onFallback()
	}
	if n.fallback == nil {
		n.logger.Error("notification dropped, no fallback log configured",
			"to", to, "subject", subject)
		return
	}
	if err := n.fallback.Write(to, subject, body); err != nil {
		n.logger.Error("fallback email log write failed",
			"to", to, "subject", subject, "error", err)
	}
}

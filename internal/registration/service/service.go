// Package service implements the registration review workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"regdesk/internal/directory"
	"regdesk/internal/notify"
	"regdesk/internal/registration/events"
	"regdesk/internal/registration/metrics"
	"regdesk/internal/registration/models"
	"regdesk/internal/registration/store"
	domainerrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/validation"
)

// DefaultRejectionReason is recorded when a reviewer rejects without giving
// one.
const DefaultRejectionReason = "No reason provided"

// Service coordinates admission, review, provisioning, audit and
// notification.
type Service struct {
	store    store.RequestStore
	dir      directory.Client
	notifier *notify.Notifier
	events   *events.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// locks serializes concurrent reviews of the same request id.
	locks sync.Map
}

// Option configures a Service.
type Option func(*Service)

// WithEvents attaches a lifecycle event publisher.
func WithEvents(publisher *events.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

// WithMetrics attaches workflow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
		if s.notifier != nil {
			s.notifier.SetFallbackHook(m.NotificationFallback)
		}
	}
}

// New creates the workflow service.
func New(requests store.RequestStore, dir directory.Client, notifier *notify.Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    requests,
		dir:      dir,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdmitCommand carries a validated admission into the workflow.
type AdmitCommand struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Reason    string
	SourceIP  string
	UserAgent string
}

// Admit validates the submission, checks the directory for existing
// accounts, and stores the request for review.
func (s *Service) Admit(ctx context.Context, cmd AdmitCommand) (models.RegistrationRequest, error) {
	start := time.Now()
	defer s.metrics.ObserveDuration("admit", start)

	if err := s.validateAdmit(cmd); err != nil {
		return models.RegistrationRequest{}, err
	}

	// The directory is the authority on taken identities; the pending queue
	// only guards against double submission.
	switch s.dir.Exists(ctx, cmd.Username, cmd.Email) {
	case directory.CollisionUsername:
		s.metrics.AdmitConflict("username")
		return models.RegistrationRequest{}, domainerrors.New(domainerrors.CodeConflict,
			fmt.Sprintf("username %q is already taken", cmd.Username))
	case directory.CollisionEmail:
		s.metrics.AdmitConflict("email")
		return models.RegistrationRequest{}, domainerrors.New(domainerrors.CodeConflict,
			fmt.Sprintf("email %q is already registered", cmd.Email))
	}

	admitted, err := s.store.Admit(ctx, models.RegistrationRequest{
		Username:  cmd.Username,
		Email:     cmd.Email,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Reason:    cmd.Reason,
		SourceIP:  cmd.SourceIP,
		UserAgent: cmd.UserAgent,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			s.metrics.AdmitConflict("username")
			return models.RegistrationRequest{}, domainerrors.New(domainerrors.CodeConflict,
				fmt.Sprintf("username %q already has a pending registration request", cmd.Username))
		case errors.Is(err, store.ErrDuplicateEmail):
			s.metrics.AdmitConflict("email")
			return models.RegistrationRequest{}, domainerrors.New(domainerrors.CodeConflict,
				fmt.Sprintf("email %q already has a pending registration request", cmd.Email))
		default:
			return models.RegistrationRequest{}, domainerrors.Wrap(err, domainerrors.CodeInternal,
				"failed to store registration request")
		}
	}

	s.logger.Info("registration request admitted",
		"request_id", admitted.ID,
		"username", admitted.Username,
		"source_ip", admitted.SourceIP,
	)
	s.metrics.RequestAdmitted()
	s.notifier.AdmittedRequest(ctx, admitted)
	s.events.RequestAdmitted(ctx, admitted)
	return admitted, nil
}

func (s *Service) validateAdmit(cmd AdmitCommand) error {
	if err := validation.Username(cmd.Username); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.Email(cmd.Email); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.NameField("first name", cmd.FirstName); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.NameField("last name", cmd.LastName); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	return nil
}

// Approve provisions the account for a pending request and records the
// approval. A provisioning failure leaves the pending request untouched so
// the reviewer can retry once the directory recovers.
func (s *Service) Approve(ctx context.Context, id int64, approver string) (models.AuditEntry, error) {
	start := time.Now()
	defer s.metrics.ObserveDuration("approve", start)

	unlock := s.lock(id)
	defer unlock()

	req, err := s.store.Get(ctx, id)
	if err != nil {
		return models.AuditEntry{}, s.mapStoreError(err, id)
	}

	credential, err := s.dir.Provision(ctx, directory.Account{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		stage := "create"
		if domainerrors.HasCode(err, domainerrors.CodeProvisionCredential) {
			stage = "credential"
		}
		s.metrics.ProvisionFailure(stage)
		s.logger.Error("provisioning failed, request stays pending",
			"request_id", id,
			"username", req.Username,
			"stage", stage,
			"error", err,
		)
		return models.AuditEntry{}, err
	}

	entry, err := s.store.Resolve(ctx, id, store.Outcome{
		Action:      models.ActionApproved,
		PerformedBy: approver,
	})
	if err != nil {
		// The account exists but the bookkeeping failed. Surface it loudly;
		// a retry will hit the directory duplicate at provisioning.
		s.logger.Error("account provisioned but request resolution failed",
			"request_id", id,
			"username", req.Username,
			"error", err,
		)
		return models.AuditEntry{}, s.mapStoreError(err, id)
	}

	s.logger.Info("registration request approved",
		"request_id", id,
		"username", entry.Username,
		"approved_by", approver,
	)
	s.metrics.RequestApproved()
	s.notifier.Approved(ctx, entry, credential)
	s.events.RequestResolved(ctx, entry)
	return entry, nil
}

// Reject records the rejection and notifies the applicant. An empty reason
// is replaced with DefaultRejectionReason.
func (s *Service) Reject(ctx context.Context, id int64, reviewer, reason string) (models.AuditEntry, error) {
	start := time.Now()
	defer s.metrics.ObserveDuration("reject", start)

	unlock := s.lock(id)
	defer unlock()

	if reason == "" {
		reason = DefaultRejectionReason
	}

	entry, err := s.store.Resolve(ctx, id, store.Outcome{
		Action:          models.ActionRejected,
		PerformedBy:     reviewer,
		RejectionReason: reason,
	})
	if err != nil {
		return models.AuditEntry{}, s.mapStoreError(err, id)
	}

	s.logger.Info("registration request rejected",
		"request_id", id,
		"username", entry.Username,
		"rejected_by", reviewer,
	)
	s.metrics.RequestRejected()
	s.notifier.Rejected(ctx, entry)
	s.events.RequestResolved(ctx, entry)
	return entry, nil
}

// ListPending returns all requests awaiting review, newest first.
func (s *Service) ListPending(ctx context.Context) ([]models.RegistrationRequest, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list pending requests")
	}
	return pending, nil
}

// ListAudit returns the most recent audit entries, capped at limit.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	entries, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (s *Service) mapStoreError(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.New(domainerrors.CodeNotFound,
			fmt.Sprintf("registration request %d not found", id))
	}
	return domainerrors.Wrap(err, domainerrors.CodeInternal, "registration store failure")
}

// lock acquires the per-request mutex and returns its release function.
func (s *Service) lock(id int64) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

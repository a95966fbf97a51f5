package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"regdesk/internal/registration/models"
)

// MemoryStore is an in-memory RequestStore for development and tests. State
// is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	pending map[int64]models.RegistrationRequest
	audit   []models.AuditEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		pending: make(map[int64]models.RegistrationRequest),
	}
}

func (s *MemoryStore) Admit(_ context.Context, req models.RegistrationRequest) (models.RegistrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.pending {
		if existing.Username == req.Username {
			return models.RegistrationRequest{}, ErrDuplicateUsername
		}
		if existing.Email == req.Email {
			return models.RegistrationRequest{}, ErrDuplicateEmail
		}
	}

	req.ID = s.nextID
	s.nextID++
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	s.pending[req.ID] = req
	return req, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (models.RegistrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.pending[id]
	if !ok {
		return models.RegistrationRequest{}, ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]models.RegistrationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RegistrationRequest, 0, len(s.pending))
	for _, req := range s.pending {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) Resolve(_ context.Context, id int64, outcome Outcome) (models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.pending[id]
	if !ok {
		return models.AuditEntry{}, ErrNotFound
	}

	reviewedAt := outcome.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}

	entry := models.AuditEntry{
		ID:              int64(len(s.audit) + 1),
		RequestID:       req.ID,
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Reason:          req.Reason,
		SourceIP:        req.SourceIP,
		UserAgent:       req.UserAgent,
		Action:          outcome.Action,
		PerformedBy:     outcome.PerformedBy,
		RejectionReason: outcome.RejectionReason,
		CreatedAt:       req.CreatedAt,
		ReviewedAt:      reviewedAt,
	}
	s.audit = append(s.audit, entry)
	delete(s.pending, id)
	return entry, nil
}

func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReviewedAt.Equal(out[j].ReviewedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ReviewedAt.After(out[j].ReviewedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"regdesk/internal/registration/models"
)

// PostgresStore is the production RequestStore backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed request store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = "id, username, email, first_name, last_name, reason, source_ip, user_agent, created_at"

func (s *PostgresStore) Admit(ctx context.Context, req models.RegistrationRequest) (models.RegistrationRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.RegistrationRequest{}, fmt.Errorf("begin admit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Check both columns up front so the caller learns which field collided.
	var dupUsername, dupEmail bool
	err = tx.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM registration_requests WHERE username = $1),
			EXISTS (SELECT 1 FROM registration_requests WHERE email = $2)`,
		req.Username, req.Email,
	).Scan(&dupUsername, &dupEmail)
	if err != nil {
		return models.RegistrationRequest{}, fmt.Errorf("check duplicates: %w", err)
	}
	if dupUsername {
		return models.RegistrationRequest{}, ErrDuplicateUsername
	}
	if dupEmail {
		return models.RegistrationRequest{}, ErrDuplicateEmail
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registration_requests
			(username, email, first_name, last_name, reason, source_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		req.Username, req.Email, req.FirstName, req.LastName, req.Reason, req.SourceIP, req.UserAgent,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		// Concurrent admits can slip past the existence check; the unique
		// indexes are the backstop.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "registration_requests_email_key" {
				return models.RegistrationRequest{}, ErrDuplicateEmail
			}
			return models.RegistrationRequest{}, ErrDuplicateUsername
		}
		return models.RegistrationRequest{}, fmt.Errorf("insert request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RegistrationRequest{}, fmt.Errorf("commit admit: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (models.RegistrationRequest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM registration_requests WHERE id = $1", id)
	return scanRequest(row)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]models.RegistrationRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM registration_requests ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []models.RegistrationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Resolve(ctx context.Context, id int64, outcome Outcome) (models.AuditEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("begin resolve: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The row lock serializes concurrent resolves; the loser finds the row
	// gone and reports not found.
	row := tx.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM registration_requests WHERE id = $1 FOR UPDATE", id)
	req, err := scanRequest(row)
	if err != nil {
		return models.AuditEntry{}, err
	}

	reviewedAt := outcome.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}

	entry := models.AuditEntry{
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

	err = tx.QueryRowContext(ctx, `
		INSERT INTO audit_log
			(request_id, username, email, first_name, last_name, reason,
			 source_ip, user_agent, action, performed_by, rejection_reason,
			 created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		entry.RequestID, entry.Username, entry.Email, entry.FirstName, entry.LastName,
		entry.Reason, entry.SourceIP, entry.UserAgent, string(entry.Action),
		entry.PerformedBy, entry.RejectionReason, entry.CreatedAt, entry.ReviewedAt,
	).Scan(&entry.ID)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("insert audit entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM registration_requests WHERE id = $1", id); err != nil {
		return models.AuditEntry{}, fmt.Errorf("delete pending request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.AuditEntry{}, fmt.Errorf("commit resolve: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, username, email, first_name, last_name, reason,
		       source_ip, user_agent, action, performed_by, rejection_reason,
		       created_at, reviewed_at
		FROM audit_log
		ORDER BY reviewed_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var action string
		err := rows.Scan(
			&entry.ID, &entry.RequestID, &entry.Username, &entry.Email,
			&entry.FirstName, &entry.LastName, &entry.Reason,
			&entry.SourceIP, &entry.UserAgent, &action, &entry.PerformedBy,
			&entry.RejectionReason, &entry.CreatedAt, &entry.ReviewedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = models.Action(action)
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.RegistrationRequest, error) {
	var req models.RegistrationRequest
	err := row.Scan(
		&req.ID, &req.Username, &req.Email, &req.FirstName, &req.LastName,
		&req.Reason, &req.SourceIP, &req.UserAgent, &req.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RegistrationRequest{}, ErrNotFound
	}
	if err != nil {
		return models.RegistrationRequest{}, fmt.Errorf("scan request: %w", err)
	}
	return req, nil
}

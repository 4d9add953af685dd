package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresLedger persists approval requests in the approval_requests
// table. Decisions use a conditional UPDATE (`WHERE status = 'pending'`)
// so concurrent approve/deny races on the same row resolve to exactly one
// winner without explicit row locks.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a PostgresLedger over the given pool.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const requestColumns = `id, tool_name, input, context, description, status,
       created_at, decided_at, decision_actor, deny_reason`

func (l *PostgresLedger) Create(ctx context.Context, req *Request) (string, error) {
	ctxJSON, err := json.Marshal(req.Context)
	if err != nil {
		return "", fmt.Errorf("Create: %w", err)
	}

	id := uuid.New().String()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO approval_requests
			(id, tool_name, input, context, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', now())`,
		id, req.ToolName, []byte(req.Input), ctxJSON, req.Description)
	if err != nil {
		return "", fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (l *PostgresLedger) Get(ctx context.Context, id string) (*Request, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return req, nil
}

func (l *PostgresLedger) Approve(ctx context.Context, id, actorID string) (*Request, error) {
	return l.decide(ctx, id, StatusApproved, actorID, "")
}

func (l *PostgresLedger) Deny(ctx context.Context, id, actorID, reason string) (*Request, error) {
	return l.decide(ctx, id, StatusDenied, actorID, reason)
}

func (l *PostgresLedger) Expire(ctx context.Context, id string) (*Request, error) {
	return l.decide(ctx, id, StatusExpired, "system", "")
}

func (l *PostgresLedger) decide(ctx context.Context, id string, to Status, actorID, reason string) (*Request, error) {
	row := l.db.QueryRowContext(ctx, `
		UPDATE approval_requests
		SET status = $2, decision_actor = $3, deny_reason = $4, decided_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id, string(to), actorID, reason)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		// Either the row doesn't exist or it was already decided. Look it
		// up to tell the caller which.
		existing, getErr := l.Get(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("decide %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("decide %q (%s): %w", id, existing.Status, ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	return req, nil
}

func (l *PostgresLedger) ExpireBefore(ctx context.Context, cutoff time.Time) ([]*Request, error) {
	rows, err := l.db.QueryContext(ctx, `
		UPDATE approval_requests
		SET status = 'expired', decision_actor = 'system', decided_at = now()
		WHERE status = 'pending' AND created_at < $1
		RETURNING `+requestColumns,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("ExpireBefore: %w", err)
	}
	defer rows.Close()

	var expired []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ExpireBefore: %w", err)
		}
		expired = append(expired, req)
	}
	return expired, rows.Err()
}

func (l *PostgresLedger) ListPending(ctx context.Context, userID string) ([]*Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = 'pending'`
	args := []any{}
	if userID != "" {
		query += ` AND context->>'user_id' = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer rows.Close()

	var pending []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPending: %w", err)
		}
		pending = append(pending, req)
	}
	return pending, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (*Request, error) {
	var (
		req       Request
		input     []byte
		ctxJSON   []byte
		status    string
		decidedAt sql.NullTime
		actor     sql.NullString
		reason    sql.NullString
		desc      sql.NullString
	)
	err := s.Scan(&req.ID, &req.ToolName, &input, &ctxJSON, &desc, &status,
		&req.CreatedAt, &decidedAt, &actor, &reason)
	if err != nil {
		return nil, err
	}

	req.Input = json.RawMessage(input)
	req.Status = Status(status)
	if err := json.Unmarshal(ctxJSON, &req.Context); err != nil {
		return nil, fmt.Errorf("scanRequest: context: %w", err)
	}
	if desc.Valid {
		req.Description = desc.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	if actor.Valid {
		req.DecisionActor = actor.String
	}
	if reason.Valid {
		req.DenyReason = reason.String
	}
	return &req, nil
}

var _ Ledger = (*PostgresLedger)(nil)
var _ Ledger = (*MemoryLedger)(nil)

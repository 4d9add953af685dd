// Package ledger is the durable audit trail of approval decisions. One
// row per invocation attempt that required human sign-off; rows are never
// deleted, only transitioned.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// Status of an approval request. Transitions are one-way:
// pending → approved | denied | expired.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

var (
	// ErrNotFound is returned for unknown approval ids.
	ErrNotFound = errors.New("approval request not found")
	// ErrInvalidTransition is returned when a decision targets a row that
	// is no longer pending. Decisioning is idempotence-checked: the second
	// approve of the same id fails with this.
	ErrInvalidTransition = errors.New("approval request is not pending")
)

// Request is one ledger row. Input and Context are stored verbatim so an
// approved request re-enters execution with exactly the original payload.
type Request struct {
	ID            string          `json:"id"`
	ToolName      string          `json:"tool_name"`
	Input         json.RawMessage `json:"input"`
	Context       tool.Context    `json:"context"`
	Description   string          `json:"description,omitempty"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	DecisionActor string          `json:"decision_actor,omitempty"`
	DenyReason    string          `json:"deny_reason,omitempty"`
}

// Ledger is the approval store. Approve/Deny/Expire must be atomic
// conditional transitions: concurrent decisions on the same id must
// resolve to exactly one winner, the rest failing ErrInvalidTransition.
type Ledger interface {
	// Create inserts a pending row and returns its id.
	Create(ctx context.Context, req *Request) (string, error)

	// Get returns the row by id.
	Get(ctx context.Context, id string) (*Request, error)

	// Approve transitions pending → approved and records the actor.
	Approve(ctx context.Context, id, actorID string) (*Request, error)

	// Deny transitions pending → denied and records actor and reason.
	Deny(ctx context.Context, id, actorID, reason string) (*Request, error)

	// Expire transitions pending → expired (system actor).
	Expire(ctx context.Context, id string) (*Request, error)

	// ExpireBefore expires every pending row created before the cutoff and
	// returns the expired rows.
	ExpireBefore(ctx context.Context, cutoff time.Time) ([]*Request, error)

	// ListPending returns pending rows for a user, newest first. An empty
	// userID lists all pending rows.
	ListPending(ctx context.Context, userID string) ([]*Request, error)
}

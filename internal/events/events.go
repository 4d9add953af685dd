// Package events is the append-only observability feed of invocation
// lifecycles. Emission is fire-and-forget and at-least-once; consumers
// must tolerate duplicates.
package events

import (
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// Event types, one per invocation state transition.
const (
	TypeReceived         = "invocation.received"
	TypeValidationFailed = "invocation.validation_failed"
	TypeBlocked          = "invocation.blocked"
	TypeAwaitingApproval = "invocation.awaiting_approval"
	TypeRateLimited      = "invocation.rate_limited"
	TypeExecuting        = "invocation.executing"
	TypeSucceeded        = "invocation.succeeded"
	TypeFailed           = "invocation.failed"
	TypeApproved         = "approval.approved"
	TypeDenied           = "approval.denied"
	TypeExpired          = "approval.expired"
)

// Event is one lifecycle transition of one invocation.
type Event struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	InvocationID string       `json:"invocation_id"`
	ToolName     string       `json:"tool_name"`
	Provider     string       `json:"provider"`
	ApprovalID   string       `json:"approval_id,omitempty"`
	Context      tool.Context `json:"context"`
	Code         string       `json:"code,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	DurationMs   float64      `json:"duration_ms,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Emitter receives every lifecycle event. Emit must never block the
// invocation path.
type Emitter interface {
	Emit(e *Event)
	Close()
}

// Multi fans one event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(e *Event) {
	for _, em := range m {
		em.Emit(e)
	}
}

func (m Multi) Close() {
	for _, em := range m {
		em.Close()
	}
}

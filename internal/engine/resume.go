package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/events"
	"github.com/cscx-ai/toolgate/internal/ledger"
	"github.com/cscx-ai/toolgate/internal/tool"
)

// Approve resumes an awaiting invocation: it transitions the ledger row
// and re-enters execution with the originally stored input and context.
// Ledger errors (unknown id, already decided) are returned to the caller;
// execution outcomes are reported on the Result.
func (e *Engine) Approve(ctx context.Context, approvalID, actorID string) (*tool.Result, error) {
	row, err := e.ledger.Approve(ctx, approvalID, actorID)
	if err != nil {
		return nil, fmt.Errorf("Approve: %w", err)
	}

	invocationID := uuid.New().String()
	e.emit(&events.Event{
		Type:         events.TypeApproved,
		InvocationID: invocationID,
		ToolName:     row.ToolName,
		ApprovalID:   approvalID,
		Context:      row.Context,
		Detail:       "approved by " + actorID,
	})

	reg, err := e.registry.Lookup(row.ToolName)
	if err != nil {
		// The tool disappeared between park and approve (process restart
		// with a different registration set). The approval stands in the
		// audit trail; the execution fails.
		e.logger.Error("approved tool no longer registered",
			zap.String("approval_id", approvalID),
			zap.String("tool_name", row.ToolName),
		)
		return tool.Fail(tool.CodeToolNotFound, false, "tool %q is no longer registered", row.ToolName), nil
	}

	input, err := reg.ParseInput(json.RawMessage(row.Input))
	if err != nil {
		return tool.Fail(tool.CodeValidationError, false, "stored input for %q no longer validates: %v", row.ToolName, err), nil
	}

	return e.execute(ctx, invocationID, reg, input, row.Context, approvalID), nil
}

// Deny records a human refusal. The invocation never executes; replays of
// the same approval id fail with ErrInvalidTransition.
func (e *Engine) Deny(ctx context.Context, approvalID, actorID, reason string) (*ledger.Request, error) {
	row, err := e.ledger.Deny(ctx, approvalID, actorID, reason)
	if err != nil {
		return nil, fmt.Errorf("Deny: %w", err)
	}

	e.emit(&events.Event{
		Type:       events.TypeDenied,
		ToolName:   row.ToolName,
		ApprovalID: approvalID,
		Context:    row.Context,
		Detail:     reason,
	})
	return row, nil
}

// ListPending returns the approval queue for a user (all users when empty).
func (e *Engine) ListPending(ctx context.Context, userID string) ([]*ledger.Request, error) {
	rows, err := e.ledger.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	return rows, nil
}

package api

import (
	"encoding/json"
	"time"

	"github.com/cscx-ai/toolgate/internal/ledger"
	"github.com/cscx-ai/toolgate/internal/tool"
)

// --- POST /v1/invoke request/response ---

// ContextReq identifies who the invocation acts on behalf of.
type ContextReq struct {
	UserID     string            `json:"user_id"`
	CustomerID string            `json:"customer_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	TraceID    string            `json:"trace_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// InvokeRequest is the JSON body for POST /v1/invoke.
type InvokeRequest struct {
	Tool    string          `json:"tool"`
	Input   json.RawMessage `json:"input"`
	Context ContextReq      `json:"context"`
}

// InvokeResponse is a tool.Result on the wire; the alias keeps the
// handler signatures readable.
type InvokeResponse = tool.Result

// --- GET /v1/tools ---

// ToolResp is one discoverable tool.
type ToolResp struct {
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Provider       string         `json:"provider"`
	InputSchema    map[string]any `json:"input_schema,omitempty"`
	RequiresAuth   bool           `json:"requires_auth"`
	ApprovalPolicy string         `json:"approval_policy"`
	Enabled        bool           `json:"enabled"`
}

// ToolListResp wraps the discovery result.
type ToolListResp struct {
	Tools []ToolResp `json:"tools"`
	Total int        `json:"total"`
}

// --- Approvals ---

// ApprovalResp is one ledger row.
type ApprovalResp struct {
	ID            string          `json:"id"`
	ToolName      string          `json:"tool_name"`
	Input         json.RawMessage `json:"input"`
	UserID        string          `json:"user_id"`
	AgentID       string          `json:"agent_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	DecisionActor string          `json:"decision_actor,omitempty"`
	DenyReason    string          `json:"deny_reason,omitempty"`
}

func approvalResp(r *ledger.Request) ApprovalResp {
	return ApprovalResp{
		ID:            r.ID,
		ToolName:      r.ToolName,
		Input:         r.Input,
		UserID:        r.Context.UserID,
		AgentID:       r.Context.AgentID,
		Description:   r.Description,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		DecidedAt:     r.DecidedAt,
		DecisionActor: r.DecisionActor,
		DenyReason:    r.DenyReason,
	}
}

// ApprovalListResp wraps a pending-approvals listing.
type ApprovalListResp struct {
	Approvals []ApprovalResp `json:"approvals"`
	Total     int            `json:"total"`
}

// DecisionReq is the JSON body for approve/deny endpoints.
type DecisionReq struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// ApproveResp carries the decided row and, for approvals, the execution result.
type ApproveResp struct {
	Approval ApprovalResp `json:"approval"`
	Result   *tool.Result `json:"result,omitempty"`
}

// --- Events ---

// EventResp is one row of the invocation event read model.
type EventResp struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	InvocationID string    `json:"invocation_id"`
	ToolName     string    `json:"tool_name"`
	Provider     string    `json:"provider"`
	ApprovalID   string    `json:"approval_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	CustomerID   string    `json:"customer_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	AgentID      string    `json:"agent_id,omitempty"`
	TraceID      string    `json:"trace_id,omitempty"`
	Code         string    `json:"code,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	DurationMs   float64   `json:"duration_ms,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventListResp wraps an event listing.
type EventListResp struct {
	Events   []EventResp `json:"events"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}

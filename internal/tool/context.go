package tool

// Context identifies the caller of a single invocation. It is created per
// call and travels with the invocation into ledger rows and events; it is
// never persisted on its own.
type Context struct {
	UserID     string            `json:"user_id"`
	CustomerID string            `json:"customer_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	AgentID    string            `json:"agent_id,omitempty"`
	TraceID    string            `json:"trace_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

package tool

import (
	"context"
	"time"
)

// ApprovalPolicy is a tool author's static declaration of how invocations
// of the tool relate to human approval. It is a hard ceiling: user autonomy
// configuration can tighten require_approval/auto_approve but can never
// override always_approve or never_approve.
type ApprovalPolicy string

const (
	// AlwaysApprove declares the tool needs no approval, ever.
	AlwaysApprove ApprovalPolicy = "always_approve"
	// AutoApprove executes directly unless the user policy pauses
	// high-risk calls and this call is flagged high-risk.
	AutoApprove ApprovalPolicy = "auto_approve"
	// RequireApproval parks invocations in the approval ledger unless the
	// user policy auto-approves everything and the call is not high-risk.
	RequireApproval ApprovalPolicy = "require_approval"
	// NeverApprove blocks all invocations of the tool.
	NeverApprove ApprovalPolicy = "never_approve"
)

// Valid reports whether p is one of the four known policies.
func (p ApprovalPolicy) Valid() bool {
	switch p {
	case AlwaysApprove, AutoApprove, RequireApproval, NeverApprove:
		return true
	}
	return false
}

// RateLimit is a fixed-window request ceiling for a single tool.
type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

// ExecuteFunc performs the tool's side effect with already-validated input.
// It must respect ctx cancellation; the engine runs it under a bounded timeout.
type ExecuteFunc func(ctx context.Context, input map[string]any, ic Context) (any, error)

// Descriptor is the static metadata for one tool. Descriptors are immutable
// after registration and owned exclusively by the Registry.
type Descriptor struct {
	Name     string
	Category string
	Provider string

	// InputSchema is a JSON Schema for the raw invocation input. Compiled at
	// registration; malformed schemas fail Register, not Invoke.
	InputSchema map[string]any
	// OutputSchema is optional and documentation-only.
	OutputSchema map[string]any

	RequiresAuth   bool
	ApprovalPolicy ApprovalPolicy
	RateLimit      *RateLimit
	Enabled        bool

	// HighRisk optionally classifies a specific call as high-risk for the
	// policy resolver. Nil means never high-risk.
	HighRisk func(input map[string]any) bool

	// Describe optionally renders a human-readable summary of a call for
	// reviewers of a pending approval.
	Describe func(input map[string]any) string

	Execute ExecuteFunc
}

// Description renders reviewer context for an approval row, falling back to
// the tool name when the descriptor has no Describe func.
func (d *Descriptor) Description(input map[string]any) string {
	if d.Describe != nil {
		return d.Describe(input)
	}
	return d.Name
}

// IsHighRisk applies the descriptor's risk predicate to a call's input.
func (d *Descriptor) IsHighRisk(input map[string]any) bool {
	return d.HighRisk != nil && d.HighRisk(input)
}

// Package policy combines a tool's static approval policy with the
// caller's effective autonomy configuration into a single disposition.
package policy

import (
	"github.com/cscx-ai/toolgate/internal/autonomy"
	"github.com/cscx-ai/toolgate/internal/tool"
)

// Disposition is the resolver's verdict for one call.
type Disposition string

const (
	// Execute runs the tool immediately.
	Execute Disposition = "execute"
	// NeedsApproval parks the call in the approval ledger.
	NeedsApproval Disposition = "needs_approval"
	// Blocked refuses the call outright, with no ledger row. This is the
	// tool refusing, distinct from a human denying.
	Blocked Disposition = "blocked"
)

// Resolve applies the gateway's core authorization rule. Priority order,
// first match wins:
//
//  1. never_approve  → Blocked, regardless of user policy.
//  2. always_approve → Execute; the tool author declared no approval needed.
//  3. require_approval → NeedsApproval, unless the user auto-approves
//     everything AND is not pausing on high risk AND the call is not
//     flagged high-risk.
//  4. auto_approve → Execute, unless the user pauses on high risk AND the
//     call is flagged high-risk.
//
// The descriptor policy is a hard ceiling: user configuration can only
// make require_approval/auto_approve more restrictive, never override
// never_approve or always_approve.
func Resolve(descPolicy tool.ApprovalPolicy, user autonomy.Policy, highRisk bool) Disposition {
	switch descPolicy {
	case tool.NeverApprove:
		return Blocked

	case tool.AlwaysApprove:
		return Execute

	case tool.RequireApproval:
		if user.AutoApproveLevel == autonomy.ApproveAll && !user.PauseOnHighRisk && !highRisk {
			return Execute
		}
		return NeedsApproval

	case tool.AutoApprove:
		if user.PauseOnHighRisk && highRisk {
			return NeedsApproval
		}
		return Execute
	}

	// Unknown policies never reach here: the registry rejects them at
	// registration. Refuse anyway.
	return Blocked
}

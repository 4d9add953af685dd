package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/ledger"
)

// handleListApprovals handles GET /api/toolgate/approvals.
// Optional user_id query filters to one user's pending requests.
func (d *Dependencies) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	rows, err := d.Engine.ListPending(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		d.Logger.Error("list approvals failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list approvals"})
		return
	}

	approvals := make([]ApprovalResp, 0, len(rows))
	for _, row := range rows {
		approvals = append(approvals, approvalResp(row))
	}
	writeJSON(w, http.StatusOK, ApprovalListResp{Approvals: approvals, Total: len(approvals)})
}

// handleApprove handles POST /api/toolgate/approvals/{approval_id}/approve.
// A successful approval resumes the parked invocation; its execution result
// is returned alongside the decided row.
func (d *Dependencies) handleApprove(w http.ResponseWriter, r *http.Request) {
	approvalID := r.PathValue("approval_id")

	var req DecisionReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body: " + err.Error()})
		return
	}
	if req.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "actor_id is required"})
		return
	}

	result, err := d.Engine.Approve(r.Context(), approvalID, req.ActorID)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	row, err := d.Ledger.Get(r.Context(), approvalID)
	if err != nil {
		d.Logger.Error("read decided approval failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to read approval"})
		return
	}

	writeJSON(w, http.StatusOK, ApproveResp{Approval: approvalResp(row), Result: result})
}

// handleDeny handles POST /api/toolgate/approvals/{approval_id}/deny.
func (d *Dependencies) handleDeny(w http.ResponseWriter, r *http.Request) {
	approvalID := r.PathValue("approval_id")

	var req DecisionReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body: " + err.Error()})
		return
	}
	if req.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "actor_id is required"})
		return
	}

	row, err := d.Engine.Deny(r.Context(), approvalID, req.ActorID, req.Reason)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApproveResp{Approval: approvalResp(row)})
}

// writeDecisionError maps ledger errors onto HTTP statuses: unknown id is
// 404, an already-decided row is 409.
func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Approval not found"})
	case errors.Is(err, ledger.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, ErrorResp{Detail: "Approval already decided"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Decision failed"})
	}
}

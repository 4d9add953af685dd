package api

import (
	"net/http"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// handleInvoke handles POST /v1/invoke. The engine never returns a Go
// error: every outcome is a Result, and the HTTP status mirrors its code.
func (d *Dependencies) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body: " + err.Error()})
		return
	}
	if req.Tool == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "tool is required"})
		return
	}
	if req.Context.UserID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "context.user_id is required"})
		return
	}

	agent := agentFromContext(r.Context())

	ic := tool.Context{
		UserID:     req.Context.UserID,
		CustomerID: req.Context.CustomerID,
		SessionID:  req.Context.SessionID,
		TraceID:    req.Context.TraceID,
		Metadata:   req.Context.Metadata,
	}
	if agent != nil {
		ic.AgentID = agent.AgentID
		if ic.CustomerID == "" {
			ic.CustomerID = agent.CustomerID
		}
	}

	res := d.Engine.Invoke(r.Context(), req.Tool, req.Input, ic)
	writeJSON(w, statusForResult(res), res)
}

// statusForResult maps a Result onto an HTTP status code.
func statusForResult(res *tool.Result) int {
	if res.Success {
		return http.StatusOK
	}
	if res.Pending {
		return http.StatusAccepted
	}
	switch res.Code {
	case tool.CodeValidationError:
		return http.StatusBadRequest
	case tool.CodeToolNotFound:
		return http.StatusNotFound
	case tool.CodeAuthRequired, tool.CodeAuthFailed:
		return http.StatusUnauthorized
	case tool.CodeApprovalDenied:
		return http.StatusForbidden
	case tool.CodeRateLimited:
		return http.StatusTooManyRequests
	case tool.CodeProviderError, tool.CodeTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

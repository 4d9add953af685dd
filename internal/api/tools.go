package api

import (
	"net/http"
	"strconv"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// handleListTools handles GET /v1/tools with optional filters:
// category, provider, requires_approval, enabled.
func (d *Dependencies) handleListTools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := tool.Filter{
		Category: q.Get("category"),
		Provider: q.Get("provider"),
	}
	var err error
	if filter.RequiresApproval, err = boolParam(q.Get("requires_approval")); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "requires_approval must be true or false"})
		return
	}
	if filter.Enabled, err = boolParam(q.Get("enabled")); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "enabled must be true or false"})
		return
	}

	matched := d.Registry.Discover(filter)
	tools := make([]ToolResp, 0, len(matched))
	for _, reg := range matched {
		tools = append(tools, ToolResp{
			Name:           reg.Name,
			Category:       reg.Category,
			Provider:       reg.Provider,
			InputSchema:    reg.InputSchema,
			RequiresAuth:   reg.RequiresAuth,
			ApprovalPolicy: string(reg.ApprovalPolicy),
			Enabled:        reg.Enabled,
		})
	}

	writeJSON(w, http.StatusOK, ToolListResp{Tools: tools, Total: len(tools)})
}

// boolParam parses an optional query flag into a *bool filter.
func boolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

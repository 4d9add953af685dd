package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/events"
)

// handleListEvents handles GET /api/toolgate/events. Serves the ClickHouse
// read model; without it the dashboard has nothing to read.
func (d *Dependencies) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Event store not configured"})
		return
	}

	q := r.URL.Query()
	params := events.ListParams{
		UserID:    q.Get("user_id"),
		ToolName:  q.Get("tool"),
		Provider:  q.Get("provider"),
		EventType: q.Get("type"),
	}
	var err error
	if params.StartTime, err = timeParam(q.Get("start_time")); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "start_time must be RFC 3339"})
		return
	}
	if params.EndTime, err = timeParam(q.Get("end_time")); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "end_time must be RFC 3339"})
		return
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	rows, err := d.Reader.List(r.Context(), params)
	if err != nil {
		d.Logger.Error("list events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list events"})
		return
	}

	writeJSON(w, http.StatusOK, EventListResp{
		Events:   eventResps(rows),
		Page:     max(params.Page, 1),
		PageSize: len(rows),
	})
}

// handleGetInvocationEvents handles GET /api/toolgate/events/{invocation_id}:
// the full trail of one invocation, oldest first.
func (d *Dependencies) handleGetInvocationEvents(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Event store not configured"})
		return
	}

	invocationID := r.PathValue("invocation_id")
	rows, err := d.Reader.ByInvocation(r.Context(), invocationID)
	if err != nil {
		d.Logger.Error("get invocation events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to read events"})
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "No events for invocation"})
		return
	}

	writeJSON(w, http.StatusOK, EventListResp{Events: eventResps(rows), Page: 1, PageSize: len(rows)})
}

func eventResps(rows []events.EventRow) []EventResp {
	out := make([]EventResp, 0, len(rows))
	for _, row := range rows {
		out = append(out, EventResp{
			EventID:      row.EventID,
			EventType:    row.EventType,
			InvocationID: row.InvocationID,
			ToolName:     row.ToolName,
			Provider:     row.Provider,
			ApprovalID:   row.ApprovalID,
			UserID:       row.UserID,
			CustomerID:   row.CustomerID,
			SessionID:    row.SessionID,
			AgentID:      row.AgentID,
			TraceID:      row.TraceID,
			Code:         row.Code,
			Detail:       row.Detail,
			DurationMs:   row.DurationMs,
			Timestamp:    row.Timestamp,
		})
	}
	return out
}

func timeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

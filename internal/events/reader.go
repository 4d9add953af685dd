package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides dashboard read access to the invocation_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// EventRow is one row from the invocation_events table.
type EventRow struct {
	EventID      string
	EventType    string
	InvocationID string
	ToolName     string
	Provider     string
	ApprovalID   string
	UserID       string
	CustomerID   string
	SessionID    string
	AgentID      string
	TraceID      string
	Code         string
	Detail       string
	DurationMs   float64
	Timestamp    time.Time
}

// ListParams holds filters and pagination for event listing.
type ListParams struct {
	UserID    string
	ToolName  string
	Provider  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

const readerColumns = `event_id, event_type, invocation_id, tool_name, provider,
       approval_id, user_id, customer_id, session_id, agent_id,
       trace_id, code, detail, duration_ms, timestamp`

// List returns paginated, filtered events, newest first.
func (r *Reader) List(ctx context.Context, params ListParams) ([]EventRow, error) {
	conditions := []string{"1 = 1"}
	args := []any{}

	if params.UserID != "" {
		conditions = append(conditions, "user_id = @user_id")
		args = append(args, clickhouse.Named("user_id", params.UserID))
	}
	if params.ToolName != "" {
		conditions = append(conditions, "tool_name = @tool_name")
		args = append(args, clickhouse.Named("tool_name", params.ToolName))
	}
	if params.Provider != "" {
		conditions = append(conditions, "provider = @provider")
		args = append(args, clickhouse.Named("provider", params.Provider))
	}
	if params.EventType != "" {
		conditions = append(conditions, "event_type = @event_type")
		args = append(args, clickhouse.Named("event_type", params.EventType))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	query := `SELECT ` + readerColumns + `
		FROM invocation_events
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY timestamp DESC
		LIMIT @limit OFFSET @offset`
	args = append(args,
		clickhouse.Named("limit", pageSize),
		clickhouse.Named("offset", (page-1)*pageSize),
	)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.EventID, &e.EventType, &e.InvocationID, &e.ToolName, &e.Provider,
			&e.ApprovalID, &e.UserID, &e.CustomerID, &e.SessionID, &e.AgentID,
			&e.TraceID, &e.Code, &e.Detail, &e.DurationMs, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByInvocation returns the full lifecycle of one invocation, oldest first.
func (r *Reader) ByInvocation(ctx context.Context, invocationID string) ([]EventRow, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+readerColumns+`
		FROM invocation_events
		WHERE invocation_id = @invocation_id
		ORDER BY timestamp ASC`,
		clickhouse.Named("invocation_id", invocationID))
	if err != nil {
		return nil, fmt.Errorf("ByInvocation: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.EventID, &e.EventType, &e.InvocationID, &e.ToolName, &e.Provider,
			&e.ApprovalID, &e.UserID, &e.CustomerID, &e.SessionID, &e.AgentID,
			&e.TraceID, &e.Code, &e.Detail, &e.DurationMs, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("ByInvocation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

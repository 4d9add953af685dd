package events

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = 100 * time.Millisecond
	flushBatch    = 1000
	drainTimeout  = 2 * time.Second
)

// ClickHouseEmitter writes invocation events to ClickHouse asynchronously.
// Emit is non-blocking: events are buffered and batch-inserted by a
// background goroutine; when the buffer is full the event is dropped.
type ClickHouseEmitter struct {
	conn    driver.Conn
	buffer  chan *Event
	done    chan struct{}
	flushed chan struct{}
	logger  *zap.Logger
}

// NewClickHouseEmitter connects to ClickHouse and starts the flush loop.
func NewClickHouseEmitter(dsn string, logger *zap.Logger) (*ClickHouseEmitter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	w := &ClickHouseEmitter{
		conn:    conn,
		buffer:  make(chan *Event, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}
	go w.flushLoop()
	return w, nil
}

func (w *ClickHouseEmitter) Emit(e *Event) {
	select {
	case w.buffer <- e:
	default:
		w.logger.Warn("clickhouse buffer full, dropping event",
			zap.String("invocation_id", e.InvocationID),
			zap.String("type", e.Type),
		)
	}
}

// Close signals the flush loop to drain remaining events and waits for it.
func (w *ClickHouseEmitter) Close() {
	close(w.done)
	<-w.flushed
}

func (w *ClickHouseEmitter) flushLoop() {
	defer close(w.flushed)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*Event, 0, flushBatch)

	for {
		select {
		case e := <-w.buffer:
			batch = append(batch, e)
			if len(batch) >= flushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.done:
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case e := <-w.buffer:
					batch = append(batch, e)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *ClickHouseEmitter) flush(events []*Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO invocation_events (
			event_id, event_type, invocation_id, tool_name, provider,
			approval_id, user_id, customer_id, session_id, agent_id,
			trace_id, metadata, code, detail, duration_ms, timestamp
		)
	`)
	if err != nil {
		w.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, e := range events {
		if err := batch.Append(
			e.ID,
			e.Type,
			e.InvocationID,
			e.ToolName,
			e.Provider,
			e.ApprovalID,
			e.Context.UserID,
			e.Context.CustomerID,
			e.Context.SessionID,
			e.Context.AgentID,
			e.Context.TraceID,
			e.Context.Metadata,
			e.Code,
			e.Detail,
			e.DurationMs,
			e.Timestamp,
		); err != nil {
			w.logger.Error("clickhouse append event failed",
				zap.String("invocation_id", e.InvocationID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		w.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
	}
}

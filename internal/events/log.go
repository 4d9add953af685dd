package events

import "go.uber.org/zap"

// LogEmitter is the fallback Emitter for deployments without ClickHouse.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates a LogEmitter over the given logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (w *LogEmitter) Emit(e *Event) {
	w.logger.Info("invocation_event",
		zap.String("event_id", e.ID),
		zap.String("type", e.Type),
		zap.String("invocation_id", e.InvocationID),
		zap.String("tool_name", e.ToolName),
		zap.String("provider", e.Provider),
		zap.String("approval_id", e.ApprovalID),
		zap.String("user_id", e.Context.UserID),
		zap.String("session_id", e.Context.SessionID),
		zap.String("code", e.Code),
		zap.Float64("duration_ms", e.DurationMs),
	)
}

func (w *LogEmitter) Close() {}

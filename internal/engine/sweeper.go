package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/events"
)

// StartExpiry launches the background sweep that expires pending
// approvals older than the configured TTL. A zero TTL disables the sweep.
func (e *Engine) StartExpiry() {
	if e.approvalTTL <= 0 {
		return
	}
	e.sweepStop = make(chan struct{})
	e.sweepDone = make(chan struct{})

	go func() {
		defer close(e.sweepDone)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.sweepExpired()
			case <-e.sweepStop:
				return
			}
		}
	}()
}

// StopExpiry stops the sweep goroutine, if running.
func (e *Engine) StopExpiry() {
	if e.sweepStop == nil {
		return
	}
	close(e.sweepStop)
	<-e.sweepDone
	e.sweepStop = nil
}

func (e *Engine) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cutoff := e.now().Add(-e.approvalTTL)
	expired, err := e.ledger.ExpireBefore(ctx, cutoff)
	if err != nil {
		e.logger.Warn("approval expiry sweep failed", zap.Error(err))
		return
	}
	for _, row := range expired {
		e.emit(&events.Event{
			Type:       events.TypeExpired,
			ToolName:   row.ToolName,
			ApprovalID: row.ID,
			Context:    row.Context,
		})
	}
	if len(expired) > 0 {
		e.logger.Info("expired stale approvals", zap.Int("count", len(expired)))
	}
}

// Package engine orchestrates a single tool invocation: validate, resolve
// policy, park for approval or execute, and record every transition on
// the event stream. It is the only component allowed to call a
// descriptor's execute func.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/autonomy"
	"github.com/cscx-ai/toolgate/internal/breaker"
	"github.com/cscx-ai/toolgate/internal/events"
	"github.com/cscx-ai/toolgate/internal/ledger"
	"github.com/cscx-ai/toolgate/internal/policy"
	"github.com/cscx-ai/toolgate/internal/ratelimit"
	"github.com/cscx-ai/toolgate/internal/tool"
)

const (
	defaultExecTimeout = 30 * time.Second
	sweepInterval      = time.Minute
)

// Config wires the engine's collaborators. All services are constructed
// once at process start and passed in; the engine owns none of them
// except the expiry sweeper goroutine.
type Config struct {
	Registry *tool.Registry
	Policies autonomy.Store
	Ledger   ledger.Ledger
	Limiter  *ratelimit.Limiter
	Breaker  *breaker.Breaker
	Emitter  events.Emitter
	Logger   *zap.Logger

	// ExecTimeout bounds every descriptor execute call.
	ExecTimeout time.Duration
	// ApprovalTTL expires pending approvals older than this. Zero disables
	// auto-expiry.
	ApprovalTTL time.Duration
}

// Engine is the invocation gateway.
type Engine struct {
	registry *tool.Registry
	policies autonomy.Store
	ledger   ledger.Ledger
	limiter  *ratelimit.Limiter
	breaker  *breaker.Breaker
	emitter  events.Emitter
	logger   *zap.Logger

	execTimeout time.Duration
	approvalTTL time.Duration

	steps *stepCounter
	now   func() time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates an Engine.
func New(cfg Config) *Engine {
	timeout := cfg.ExecTimeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	return &Engine{
		registry:    cfg.Registry,
		policies:    cfg.Policies,
		ledger:      cfg.Ledger,
		limiter:     cfg.Limiter,
		breaker:     cfg.Breaker,
		emitter:     cfg.Emitter,
		logger:      cfg.Logger,
		execTimeout: timeout,
		approvalTTL: cfg.ApprovalTTL,
		steps:       newStepCounter(),
		now:         time.Now,
	}
}

// Invoke runs one tool call through the full gateway pipeline. It never
// returns an error: every outcome, including internal failures, is
// normalized into the Result's closed code set.
func (e *Engine) Invoke(ctx context.Context, toolName string, rawInput json.RawMessage, ic tool.Context) *tool.Result {
	invocationID := uuid.New().String()
	e.emit(&events.Event{
		Type:         events.TypeReceived,
		InvocationID: invocationID,
		ToolName:     toolName,
		Context:      ic,
	})

	reg, err := e.registry.Lookup(toolName)
	if err != nil {
		e.emit(&events.Event{
			Type:         events.TypeFailed,
			InvocationID: invocationID,
			ToolName:     toolName,
			Context:      ic,
			Code:         string(tool.CodeToolNotFound),
		})
		return tool.Fail(tool.CodeToolNotFound, false, "tool %q is not registered", toolName)
	}
	d := reg.Descriptor

	if !d.Enabled {
		e.emit(e.event(events.TypeFailed, invocationID, d, ic, string(tool.CodeToolNotFound)))
		return tool.Fail(tool.CodeToolNotFound, false, "tool %q is disabled", toolName)
	}

	if d.RequiresAuth && ic.Metadata["auth_"+d.Provider] == "" {
		e.emit(e.event(events.TypeFailed, invocationID, d, ic, string(tool.CodeAuthRequired)))
		return tool.Fail(tool.CodeAuthRequired, false, "tool %q requires a %s credential", toolName, d.Provider)
	}

	input, err := reg.ParseInput(rawInput)
	if err != nil {
		ev := e.event(events.TypeValidationFailed, invocationID, d, ic, string(tool.CodeValidationError))
		ev.Detail = err.Error()
		e.emit(ev)
		return tool.Fail(tool.CodeValidationError, false, "invalid input for %q: %v", toolName, err)
	}

	userPolicy, err := e.policies.Get(ctx, ic.UserID)
	if err != nil {
		e.logger.Error("autonomy policy lookup failed",
			zap.String("user_id", ic.UserID),
			zap.Error(err),
		)
		e.emit(e.event(events.TypeFailed, invocationID, d, ic, string(tool.CodeInternalError)))
		return tool.Fail(tool.CodeInternalError, false, "autonomy policy unavailable")
	}
	effective := userPolicy.Effective(e.now())

	disposition := policy.Resolve(d.ApprovalPolicy, effective, d.IsHighRisk(input))

	// User-side restrictions tighten the disposition, never loosen it:
	// paused autonomy and an exhausted step budget both degrade an
	// auto-executable call to needs-approval. always_approve tools are the
	// tool author's floor and stay executable.
	if disposition == policy.Execute && d.ApprovalPolicy != tool.AlwaysApprove {
		switch {
		case !effective.Enabled:
			disposition = policy.NeedsApproval
		case effective.MaxSteps > 0 && e.steps.count(ic) >= effective.MaxSteps:
			disposition = policy.NeedsApproval
		}
	}

	switch disposition {
	case policy.Blocked:
		// No ledger row: the tool refusing is distinct from a human denying.
		e.emit(e.event(events.TypeBlocked, invocationID, d, ic, string(tool.CodeApprovalDenied)))
		return tool.Fail(tool.CodeApprovalDenied, false, "tool %q does not permit execution", toolName)

	case policy.NeedsApproval:
		return e.parkForApproval(ctx, invocationID, reg, rawInput, input, ic)
	}

	return e.execute(ctx, invocationID, reg, input, ic, "")
}

func (e *Engine) parkForApproval(ctx context.Context, invocationID string, reg *tool.Registered, rawInput json.RawMessage, input map[string]any, ic tool.Context) *tool.Result {
	d := reg.Descriptor
	id, err := e.ledger.Create(ctx, &ledger.Request{
		ToolName:    d.Name,
		Input:       rawInput,
		Context:     ic,
		Description: d.Description(input),
	})
	if err != nil {
		e.logger.Error("approval ledger create failed",
			zap.String("tool_name", d.Name),
			zap.Error(err),
		)
		e.emit(e.event(events.TypeFailed, invocationID, d, ic, string(tool.CodeInternalError)))
		return tool.Fail(tool.CodeInternalError, false, "approval ledger unavailable")
	}

	ev := e.event(events.TypeAwaitingApproval, invocationID, d, ic, "")
	ev.ApprovalID = id
	e.emit(ev)
	return tool.PendingApproval(id)
}

// execute runs the rate-limit, breaker and callable stages. approvalID is
// non-empty when this execution resumes an approved ledger row.
func (e *Engine) execute(ctx context.Context, invocationID string, reg *tool.Registered, input map[string]any, ic tool.Context, approvalID string) *tool.Result {
	d := reg.Descriptor

	if d.RateLimit != nil {
		ok, resetAt := e.limiter.Allow(d.Name, d.RateLimit.MaxRequests, d.RateLimit.Window)
		if !ok {
			ev := e.event(events.TypeRateLimited, invocationID, d, ic, string(tool.CodeRateLimited))
			ev.ApprovalID = approvalID
			e.emit(ev)
			res := tool.Fail(tool.CodeRateLimited, true, "rate limit exceeded for %q", d.Name)
			res.Meta.RetryAfter = resetAt.UTC().Format(time.RFC3339)
			res.Meta.ApprovalID = approvalID
			return res
		}
	}

	if ok, state := e.breaker.Allow(d.Provider); !ok {
		ev := e.event(events.TypeFailed, invocationID, d, ic, string(tool.CodeProviderError))
		ev.ApprovalID = approvalID
		ev.Detail = fmt.Sprintf("provider circuit %s", state)
		e.emit(ev)
		res := tool.Fail(tool.CodeProviderError, false, "provider %q is suspended (circuit %s)", d.Provider, state)
		res.Meta.ApprovalID = approvalID
		return res
	}

	ev := e.event(events.TypeExecuting, invocationID, d, ic, "")
	ev.ApprovalID = approvalID
	e.emit(ev)

	start := e.now()
	data, err := e.runCallable(ctx, d, input, ic)
	elapsed := e.now().Sub(start)
	durationMs := float64(elapsed) / float64(time.Millisecond)

	if err != nil {
		e.breaker.RecordFailure(d.Provider)

		code := tool.CodeProviderError
		retryable := true
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			code = tool.CodeTimeout
		}

		fe := e.event(events.TypeFailed, invocationID, d, ic, string(code))
		fe.ApprovalID = approvalID
		fe.Detail = err.Error()
		fe.DurationMs = durationMs
		e.emit(fe)

		res := tool.Fail(code, retryable, "%s", err.Error())
		res.Meta.ExecutionMs = durationMs
		res.Meta.ApprovalID = approvalID
		return res
	}

	e.breaker.RecordSuccess(d.Provider)
	e.steps.increment(ic)

	se := e.event(events.TypeSucceeded, invocationID, d, ic, "")
	se.ApprovalID = approvalID
	se.DurationMs = durationMs
	e.emit(se)

	res := tool.Ok(data)
	res.Meta.ExecutionMs = durationMs
	res.Meta.ApprovalID = approvalID
	return res
}

// runCallable invokes the descriptor's execute func under the engine's
// timeout. The callable runs in its own goroutine so a callable that
// ignores cancellation still cannot wedge the invocation: the engine
// resolves to failure and the goroutine is abandoned.
func (e *Engine) runCallable(ctx context.Context, d *tool.Descriptor, input map[string]any, ic tool.Context) (any, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.execTimeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %q panicked: %v", d.Name, r)}
			}
		}()
		data, err := d.Execute(execCtx, input, ic)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		return out.data, out.err
	case <-execCtx.Done():
		return nil, execCtx.Err()
	}
}

func (e *Engine) event(typ, invocationID string, d *tool.Descriptor, ic tool.Context, code string) *events.Event {
	return &events.Event{
		Type:         typ,
		InvocationID: invocationID,
		ToolName:     d.Name,
		Provider:     d.Provider,
		Context:      ic,
		Code:         code,
	}
}

func (e *Engine) emit(ev *events.Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	e.emitter.Emit(ev)
}

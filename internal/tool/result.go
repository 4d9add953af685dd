package tool

import "fmt"

// ErrorCode is the closed set of error codes surfaced to callers.
// Every failed invocation maps to exactly one of these — raw provider
// errors never escape the gateway.
type ErrorCode string

const (
	CodeNone             ErrorCode = ""
	CodeToolNotFound     ErrorCode = "TOOL_NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeAuthRequired     ErrorCode = "AUTH_REQUIRED"
	CodeAuthFailed       ErrorCode = "AUTH_FAILED"
	CodeApprovalRequired ErrorCode = "APPROVAL_REQUIRED"
	CodeApprovalDenied   ErrorCode = "APPROVAL_DENIED"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// ResultMeta carries execution metadata alongside the result payload.
type ResultMeta struct {
	ExecutionMs float64 `json:"execution_ms,omitempty"`
	CacheHit    bool    `json:"cache_hit,omitempty"`
	ApprovalID  string  `json:"approval_id,omitempty"`
	RetryAfter  string  `json:"retry_after,omitempty"` // RFC 3339, set for RATE_LIMITED
}

// Result is the only value ever returned to a caller of the gateway.
// Pending approval is reported as Success=false with Code=APPROVAL_REQUIRED
// and Pending=true — a distinct non-error outcome, not a failure.
type Result struct {
	Success   bool       `json:"success"`
	Pending   bool       `json:"pending,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      ErrorCode  `json:"code,omitempty"`
	Retryable bool       `json:"retryable,omitempty"`
	Meta      ResultMeta `json:"meta,omitempty"`
}

// Ok builds a successful result.
func Ok(data any) *Result {
	return &Result{Success: true, Data: data}
}

// Fail builds a failed result with the given code.
func Fail(code ErrorCode, retryable bool, format string, args ...any) *Result {
	return &Result{
		Success:   false,
		Error:     fmt.Sprintf(format, args...),
		Code:      code,
		Retryable: retryable,
	}
}

// PendingApproval builds the non-error pending result carrying the ledger row id.
func PendingApproval(approvalID string) *Result {
	return &Result{
		Success: false,
		Pending: true,
		Code:    CodeApprovalRequired,
		Meta:    ResultMeta{ApprovalID: approvalID},
	}
}

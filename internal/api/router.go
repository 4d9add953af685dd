package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cscx-ai/toolgate/internal/autonomy"
	"github.com/cscx-ai/toolgate/internal/engine"
	"github.com/cscx-ai/toolgate/internal/events"
	"github.com/cscx-ai/toolgate/internal/keys"
	"github.com/cscx-ai/toolgate/internal/ledger"
	"github.com/cscx-ai/toolgate/internal/tool"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Engine   *engine.Engine
	Registry *tool.Registry
	Ledger   ledger.Ledger
	Policies autonomy.Store
	Presets  map[string]autonomy.Policy // nil means built-ins only
	Auth     keys.Authenticator
	Reader   *events.Reader // nil if ClickHouse unavailable
	Logger   *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Agent surface (auth required via Bearer tgk_ token)
	mux.HandleFunc("POST /v1/invoke", deps.authMiddleware(deps.handleInvoke))
	mux.HandleFunc("GET /v1/tools", deps.authMiddleware(deps.handleListTools))

	// Approval ledger (no auth — dashboard auth added later)
	mux.HandleFunc("GET /api/toolgate/approvals", deps.handleListApprovals)
	mux.HandleFunc("POST /api/toolgate/approvals/{approval_id}/approve", deps.handleApprove)
	mux.HandleFunc("POST /api/toolgate/approvals/{approval_id}/deny", deps.handleDeny)

	// Autonomy policies (no auth)
	mux.HandleFunc("GET /api/toolgate/users/{user_id}/autonomy", deps.handleGetAutonomy)
	mux.HandleFunc("PUT /api/toolgate/users/{user_id}/autonomy", deps.handlePutAutonomy)

	// Event read model (no auth)
	mux.HandleFunc("GET /api/toolgate/events", deps.handleListEvents)
	mux.HandleFunc("GET /api/toolgate/events/{invocation_id}", deps.handleGetInvocationEvents)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}

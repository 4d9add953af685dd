package keys

import (
	"context"
	"strings"
)

// StaticAuthenticator is the no-database fallback. It validates that the
// key has the tgk_ shape and derives the agent identity from the prefix.
// Used in local development when TOOLGATE_DB_DSN is unset.
type StaticAuthenticator struct{}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, apiKey string) (*AgentContext, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if !strings.HasPrefix(apiKey, "tgk_") || len(apiKey) < 8 {
		return nil, ErrInvalidAPIKey
	}
	return &AgentContext{
		AgentID: "agent-" + apiKey[4:8],
		Name:    "dev-agent",
	}, nil
}

// Package keys issues and verifies agent API keys. A key is shown to the
// operator once at creation; only its bcrypt hash and an 8-char prefix are
// stored, and the prefix narrows candidates before the bcrypt compare.
package keys

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingAPIKey   = errors.New("missing authorization header")
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrAuthUnavailable = errors.New("auth backend unavailable")
)

// AgentContext holds the authenticated agent's identity.
type AgentContext struct {
	AgentID    string
	Name       string
	CustomerID string
}

// Agent represents a row in the agents table.
type Agent struct {
	ID           string
	Name         string
	CustomerID   string
	APIKeyHash   string
	APIKeyPrefix string
	Disabled     bool
	CreatedAt    time.Time
}

// Authenticator resolves a bearer token to an agent identity.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*AgentContext, error)
}

// GenerateKey creates a new tgk_ API key with its bcrypt hash and prefix.
// Returns (fullKey, hash, prefix, error). The fullKey is shown once.
func GenerateKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateKey: %w", err)
	}
	fullKey := "tgk_" + hex.EncodeToString(raw) // 68 chars total

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateKey: %w", err)
	}

	prefix := fullKey[:8] // "tgk_abcd"
	return fullKey, string(hashBytes), prefix, nil
}

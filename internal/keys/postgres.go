package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AgentStore abstracts DB queries for testability.
type AgentStore interface {
	LookupByPrefix(ctx context.Context, prefix string) (*Agent, error)
}

// sqlAgentStore is the real implementation using *sql.DB.
type sqlAgentStore struct {
	db *sql.DB
}

func (s *sqlAgentStore) LookupByPrefix(ctx context.Context, prefix string) (*Agent, error) {
	a := &Agent{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, customer_id, api_key_hash, api_key_prefix, disabled, created_at
		 FROM agents WHERE api_key_prefix = $1`,
		prefix,
	).Scan(&a.ID, &a.Name, &a.CustomerID, &a.APIKeyHash, &a.APIKeyPrefix, &a.Disabled, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidAPIKey // no agent with this prefix, reject
		}
		return nil, fmt.Errorf("sqlAgentStore.LookupByPrefix: %w", err)
	}
	return a, nil
}

// PostgresAuthenticator validates API keys against the agents table.
// Uses AuthCache with stale-while-revalidate to keep DB + bcrypt off the
// hot path. Auth failures always return an error.
type PostgresAuthenticator struct {
	store  AgentStore
	cache  *AuthCache
	logger *zap.Logger
}

// PostgresAuthConfig configures the PostgresAuthenticator.
type PostgresAuthConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration // default 30s
	Logger   *zap.Logger
}

// NewPostgresAuthenticator creates an authenticator backed by PostgreSQL.
func NewPostgresAuthenticator(cfg PostgresAuthConfig) *PostgresAuthenticator {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &PostgresAuthenticator{
		store:  &sqlAgentStore{db: cfg.DB},
		cache:  NewAuthCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresAuthenticatorWithStore injects a store for testing.
func newPostgresAuthenticatorWithStore(store AgentStore, cache *AuthCache, logger *zap.Logger) *PostgresAuthenticator {
	return &PostgresAuthenticator{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Authenticate validates the API key against the database.
//
// Flow:
//  1. Cache lookup (stale-while-revalidate):
//     - Fresh hit: return immediately
//     - Stale hit: return stale agent, spawn background refresh
//     - Miss: do full DB + bcrypt lookup synchronously
//  2. On DB error: return ErrAuthUnavailable
func (a *PostgresAuthenticator) Authenticate(ctx context.Context, apiKey string) (*AgentContext, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	result := a.cache.Get(apiKey)
	if result.Hit {
		if result.NeedsRefresh {
			go a.backgroundRefresh(apiKey)
		}
		return result.Agent, nil
	}

	agent, err := a.lookupAndVerify(ctx, apiKey)
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) {
			return nil, ErrInvalidAPIKey
		}
		a.logger.Warn("auth DB unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	a.cache.Set(apiKey, agent)
	return agent, nil
}

// backgroundRefresh performs the DB + bcrypt lookup off the request path.
// Errors are logged but don't affect the caller (it already got the stale
// value).
func (a *PostgresAuthenticator) backgroundRefresh(apiKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agent, err := a.lookupAndVerify(ctx, apiKey)
	if err != nil {
		a.logger.Warn("background cache refresh failed", zap.Error(err))
		// Drop the entry so the next stale read retries a full lookup.
		a.cache.Delete(apiKey)
		return
	}

	a.cache.Set(apiKey, agent)
}

// lookupAndVerify does the full DB prefix lookup + bcrypt verification.
func (a *PostgresAuthenticator) lookupAndVerify(ctx context.Context, apiKey string) (*AgentContext, error) {
	// api_key_prefix is the first 8 chars (e.g. "tgk_abcd")
	if len(apiKey) < 8 || !strings.HasPrefix(apiKey, "tgk_") {
		return nil, ErrInvalidAPIKey
	}
	prefix := apiKey[:8]

	row, err := a.store.LookupByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("lookupAndVerify: %w", err)
	}
	if row.Disabled {
		return nil, ErrInvalidAPIKey
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.APIKeyHash), []byte(apiKey)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	return &AgentContext{
		AgentID:    row.ID,
		Name:       row.Name,
		CustomerID: row.CustomerID,
	}, nil
}

// CreateAgent inserts a new agent and returns it with the plaintext key
// (shown once).
func CreateAgent(ctx context.Context, db *sql.DB, name, customerID string) (*Agent, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}

	a := &Agent{}
	err = db.QueryRowContext(ctx, `
		INSERT INTO agents (name, customer_id, api_key_hash, api_key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, customer_id, api_key_hash, api_key_prefix, disabled, created_at`,
		name, customerID, keyHash, keyPrefix,
	).Scan(&a.ID, &a.Name, &a.CustomerID, &a.APIKeyHash, &a.APIKeyPrefix, &a.Disabled, &a.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("CreateAgent: %w", err)
	}

	return a, fullKey, nil
}

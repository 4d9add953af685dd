package autonomy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PostgresStore persists autonomy policies as JSONB rows keyed by user id,
// with a TTL cache in front. Reads on the hot path (every PolicyCheck)
// are served from the cache; stale entries are refreshed in the background.
type PostgresStore struct {
	db     *sql.DB
	cache  *policyCache
	logger *zap.Logger
}

// PostgresStoreConfig configures a PostgresStore.
type PostgresStoreConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(cfg PostgresStoreConfig) *PostgresStore {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &PostgresStore{
		db:     cfg.DB,
		cache:  newPolicyCache(ttl),
		logger: cfg.Logger,
	}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (Policy, error) {
	if p, hit, needsRefresh := s.cache.get(userID); hit {
		if needsRefresh {
			go s.refreshInBackground(userID)
		}
		return p, nil
	}

	p, err := s.fetch(ctx, userID)
	if err != nil {
		return Policy{}, fmt.Errorf("Get: %w", err)
	}
	s.cache.set(userID, p)
	return p, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID string, p Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO autonomy_policies (user_id, policy, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET policy = $2, updated_at = now()`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	s.cache.set(userID, p)
	return nil
}

func (s *PostgresStore) fetch(ctx context.Context, userID string) (Policy, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT policy FROM autonomy_policies WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return Policy{}, err
	}
	var p Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("malformed stored policy for %q: %w", userID, err)
	}
	return p, nil
}

func (s *PostgresStore) refreshInBackground(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := s.fetch(ctx, userID)
	if err != nil {
		s.logger.Warn("background autonomy policy refresh failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	s.cache.set(userID, p)
}

// policyCache is a TTL cache with stale-while-revalidate semantics.
// sync.Map keeps reads lock-free on the hot path.
type policyCache struct {
	store sync.Map // map[string]*policyCacheEntry
	ttl   time.Duration
}

type policyCacheEntry struct {
	policy     Policy
	expiresAt  time.Time
	refreshing atomic.Bool
}

func newPolicyCache(ttl time.Duration) *policyCache {
	return &policyCache{ttl: ttl}
}

func (c *policyCache) get(userID string) (p Policy, hit bool, needsRefresh bool) {
	v, ok := c.store.Load(userID)
	if !ok {
		return Policy{}, false, false
	}
	entry := v.(*policyCacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return entry.policy, true, false
	}
	// Stale — serve it, but only one goroutine wins the refresh CAS.
	needsRefresh = entry.refreshing.CompareAndSwap(false, true)
	return entry.policy, true, needsRefresh
}

func (c *policyCache) set(userID string, p Policy) {
	c.store.Store(userID, &policyCacheEntry{
		policy:    p,
		expiresAt: time.Now().Add(c.ttl),
	})
}

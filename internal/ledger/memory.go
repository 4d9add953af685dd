package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger for tests and deployments without
// Postgres. A single mutex serializes all transitions, which gives the
// same one-winner guarantee as the conditional UPDATE in the Postgres
// implementation.
type MemoryLedger struct {
	mu   sync.Mutex
	rows map[string]*Request
	now  func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[string]*Request), now: time.Now}
}

func (l *MemoryLedger) Create(_ context.Context, req *Request) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := *req
	row.ID = uuid.New().String()
	row.Status = StatusPending
	row.CreatedAt = l.now().UTC()
	l.rows[row.ID] = &row
	return row.ID, nil
}

func (l *MemoryLedger) Get(_ context.Context, id string) (*Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, fmt.Errorf("Get %q: %w", id, ErrNotFound)
	}
	cp := *row
	return &cp, nil
}

func (l *MemoryLedger) Approve(_ context.Context, id, actorID string) (*Request, error) {
	return l.transition(id, StatusApproved, actorID, "")
}

func (l *MemoryLedger) Deny(_ context.Context, id, actorID, reason string) (*Request, error) {
	return l.transition(id, StatusDenied, actorID, reason)
}

func (l *MemoryLedger) Expire(_ context.Context, id string) (*Request, error) {
	return l.transition(id, StatusExpired, "system", "")
}

func (l *MemoryLedger) transition(id string, to Status, actorID, reason string) (*Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[id]
	if !ok {
		return nil, fmt.Errorf("transition %q: %w", id, ErrNotFound)
	}
	if row.Status != StatusPending {
		return nil, fmt.Errorf("transition %q (%s): %w", id, row.Status, ErrInvalidTransition)
	}

	decided := l.now().UTC()
	row.Status = to
	row.DecidedAt = &decided
	row.DecisionActor = actorID
	row.DenyReason = reason

	cp := *row
	return &cp, nil
}

func (l *MemoryLedger) ExpireBefore(_ context.Context, cutoff time.Time) ([]*Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []*Request
	for _, row := range l.rows {
		if row.Status != StatusPending || !row.CreatedAt.Before(cutoff) {
			continue
		}
		decided := l.now().UTC()
		row.Status = StatusExpired
		row.DecidedAt = &decided
		row.DecisionActor = "system"
		cp := *row
		expired = append(expired, &cp)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	return expired, nil
}

func (l *MemoryLedger) ListPending(_ context.Context, userID string) ([]*Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []*Request
	for _, row := range l.rows {
		if row.Status != StatusPending {
			continue
		}
		if userID != "" && row.Context.UserID != userID {
			continue
		}
		cp := *row
		pending = append(pending, &cp)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.After(pending[j].CreatedAt) })
	return pending, nil
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

func newRequest(userID string) *Request {
	return &Request{
		ToolName:    "drive.share_file",
		Input:       json.RawMessage(`{"file_id":"f1","email":"a@b.com","role":"reader"}`),
		Context:     tool.Context{UserID: userID, SessionID: "s1"},
		Description: "Share file f1 with a@b.com as reader",
	}
}

func TestCreateAndGet(t *testing.T) {
	l := NewMemoryLedger()
	id, err := l.Create(context.Background(), newRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}

	row, err := l.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != StatusPending {
		t.Fatalf("expected pending, got %s", row.Status)
	}
	if row.Context.UserID != "u1" {
		t.Fatalf("expected stored context, got %+v", row.Context)
	}
	if row.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestGet_NotFound(t *testing.T) {
	l := NewMemoryLedger()
	if _, err := l.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApprove_RecordsActor(t *testing.T) {
	l := NewMemoryLedger()
	id, _ := l.Create(context.Background(), newRequest("u1"))

	row, err := l.Approve(context.Background(), id, "csm1")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != StatusApproved || row.DecisionActor != "csm1" || row.DecidedAt == nil {
		t.Fatalf("unexpected row after approve: %+v", row)
	}
}

func TestApprove_TwiceIsInvalidTransition(t *testing.T) {
	l := NewMemoryLedger()
	id, _ := l.Create(context.Background(), newRequest("u1"))

	if _, err := l.Approve(context.Background(), id, "csm1"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Approve(context.Background(), id, "csm2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeny_ThenApproveFails(t *testing.T) {
	l := NewMemoryLedger()
	id, _ := l.Create(context.Background(), newRequest("u1"))

	row, err := l.Deny(context.Background(), id, "csm1", "not appropriate")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != StatusDenied || row.DenyReason != "not appropriate" {
		t.Fatalf("unexpected row after deny: %+v", row)
	}

	if _, err := l.Approve(context.Background(), id, "csm1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after deny, got %v", err)
	}
}

func TestConcurrentDecisions_OneWinner(t *testing.T) {
	l := NewMemoryLedger()
	id, _ := l.Create(context.Background(), newRequest("u1"))

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan Status, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := l.Approve(context.Background(), id, "a"); err == nil {
					wins <- StatusApproved
				}
			} else {
				if _, err := l.Deny(context.Background(), id, "b", ""); err == nil {
					wins <- StatusDenied
				}
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one winning decision, got %d", count)
	}
}

func TestExpireBefore(t *testing.T) {
	l := NewMemoryLedger()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	oldID, _ := l.Create(context.Background(), newRequest("u1"))
	l.now = func() time.Time { return base.Add(48 * time.Hour) }
	freshID, _ := l.Create(context.Background(), newRequest("u1"))

	expired, err := l.ExpireBefore(context.Background(), base.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].ID != oldID {
		t.Fatalf("expected only the old row to expire, got %+v", expired)
	}

	fresh, _ := l.Get(context.Background(), freshID)
	if fresh.Status != StatusPending {
		t.Fatalf("fresh row should remain pending, got %s", fresh.Status)
	}
	old, _ := l.Get(context.Background(), oldID)
	if old.Status != StatusExpired || old.DecisionActor != "system" {
		t.Fatalf("unexpected expired row: %+v", old)
	}

	// Expired rows reject late decisions.
	if _, err := l.Approve(context.Background(), oldID, "csm1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on expired row, got %v", err)
	}
}

func TestListPending_FiltersByUser(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	a1, _ := l.Create(ctx, newRequest("alice"))
	_, _ = l.Create(ctx, newRequest("bob"))
	a2, _ := l.Create(ctx, newRequest("alice"))
	decided, _ := l.Create(ctx, newRequest("alice"))
	_, _ = l.Approve(ctx, decided, "csm1")

	pending, err := l.ListPending(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows for alice, got %d", len(pending))
	}
	ids := map[string]bool{pending[0].ID: true, pending[1].ID: true}
	if !ids[a1] || !ids[a2] {
		t.Fatalf("unexpected pending ids: %v", ids)
	}

	all, _ := l.ListPending(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 pending rows in total, got %d", len(all))
	}
}

package breaker

import (
	"testing"
	"time"
)

func TestOpensAfterThreshold(t *testing.T) {
	b := New(Config{Threshold: 3, CoolDown: 30 * time.Second})

	for i := 0; i < 2; i++ {
		b.RecordFailure("zoom")
		if ok, _ := b.Allow("zoom"); !ok {
			t.Fatalf("breaker should stay closed after %d failures", i+1)
		}
	}

	b.RecordFailure("zoom")
	ok, state := b.Allow("zoom")
	if ok || state != StateOpen {
		t.Fatalf("expected open breaker, got ok=%v state=%s", ok, state)
	}
}

func TestSuccessResetsCount(t *testing.T) {
	b := New(Config{Threshold: 3, CoolDown: 30 * time.Second})

	b.RecordFailure("drive")
	b.RecordFailure("drive")
	b.RecordSuccess("drive")
	b.RecordFailure("drive")
	b.RecordFailure("drive")

	if ok, _ := b.Allow("drive"); !ok {
		t.Fatal("non-consecutive failures must not open the breaker")
	}
}

func TestHalfOpenAdmitsExactlyOneTrial(t *testing.T) {
	b := New(Config{Threshold: 1, CoolDown: 30 * time.Second})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return now })

	b.RecordFailure("slack")
	if ok, _ := b.Allow("slack"); ok {
		t.Fatal("expected open breaker to reject")
	}

	now = now.Add(31 * time.Second)
	ok, state := b.Allow("slack")
	if !ok || state != StateHalfOpen {
		t.Fatalf("expected one half-open trial, got ok=%v state=%s", ok, state)
	}
	if ok, _ := b.Allow("slack"); ok {
		t.Fatal("second call during half-open trial must be rejected")
	}
}

func TestHalfOpenTrialOutcome(t *testing.T) {
	mk := func() (*Breaker, *time.Time) {
		b := New(Config{Threshold: 1, CoolDown: 10 * time.Second})
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		b.SetClock(func() time.Time { return now })
		b.RecordFailure("cal")
		now = now.Add(11 * time.Second)
		b.SetClock(func() time.Time { return now })
		if ok, _ := b.Allow("cal"); !ok {
			t.Fatal("trial should be admitted")
		}
		return b, &now
	}

	// Successful trial closes the breaker fully.
	b, _ := mk()
	b.RecordSuccess("cal")
	if st := b.Snapshot("cal"); st != StateClosed {
		t.Fatalf("expected closed after successful trial, got %s", st)
	}
	if ok, _ := b.Allow("cal"); !ok {
		t.Fatal("closed breaker should allow")
	}

	// Failed trial re-opens and restarts the cool-down.
	b, nowPtr := mk()
	b.RecordFailure("cal")
	if st := b.Snapshot("cal"); st != StateOpen {
		t.Fatalf("expected re-opened breaker, got %s", st)
	}
	if ok, _ := b.Allow("cal"); ok {
		t.Fatal("re-opened breaker should reject")
	}
	*nowPtr = nowPtr.Add(11 * time.Second)
	if ok, state := b.Allow("cal"); !ok || state != StateHalfOpen {
		t.Fatalf("expected a fresh trial after second cool-down, got ok=%v state=%s", ok, state)
	}
}

func TestProvidersAreIndependent(t *testing.T) {
	b := New(Config{Threshold: 1, CoolDown: time.Minute})
	b.RecordFailure("zoom")

	if ok, _ := b.Allow("zoom"); ok {
		t.Fatal("zoom breaker should be open")
	}
	if ok, _ := b.Allow("slack"); !ok {
		t.Fatal("slack breaker must be unaffected by zoom failures")
	}
}

package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestAllow_NPlusOneIsLimited(t *testing.T) {
	l := NewLimiter()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return base })

	const max = 3
	for i := 0; i < max; i++ {
		if ok, _ := l.Allow("slack.list_channels", max, time.Second); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	ok, resetAt := l.Allow("slack.list_channels", max, time.Second)
	if ok {
		t.Fatal("call N+1 should be limited")
	}
	if !resetAt.Equal(base.Add(time.Second)) {
		t.Fatalf("expected reset at window end, got %v", resetAt)
	}
}

func TestAllow_WindowRollsForward(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	if ok, _ := l.Allow("slack.list_channels", 1, time.Second); !ok {
		t.Fatal("first call should be allowed")
	}
	if ok, _ := l.Allow("slack.list_channels", 1, time.Second); ok {
		t.Fatal("second call in same window should be limited")
	}

	now = now.Add(time.Second)
	if ok, _ := l.Allow("slack.list_channels", 1, time.Second); !ok {
		t.Fatal("call after window elapsed should be allowed")
	}
}

func TestAllow_ToolsAreIndependent(t *testing.T) {
	l := NewLimiter()
	if ok, _ := l.Allow("a", 1, time.Minute); !ok {
		t.Fatal("a should be allowed")
	}
	if ok, _ := l.Allow("a", 1, time.Minute); ok {
		t.Fatal("a should be limited")
	}
	if ok, _ := l.Allow("b", 1, time.Minute); !ok {
		t.Fatal("b has its own window")
	}
}

func TestAllow_ConcurrentCallsNeverExceedMax(t *testing.T) {
	l := NewLimiter()
	const max = 50

	var wg sync.WaitGroup
	allowed := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("hot.tool", max, time.Minute); ok {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	var n int
	for range allowed {
		n++
	}
	if n != max {
		t.Fatalf("expected exactly %d allowed, got %d", max, n)
	}
}

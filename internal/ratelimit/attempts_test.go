package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock steps time manually for deterministic window tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestCheck_SixthAttemptLimited(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 5, Window: 15 * time.Minute}

	for i := 1; i <= 5; i++ {
		if l.Check("user@example.com", ActionLogin, p) {
			t.Fatalf("attempt %d unexpectedly limited", i)
		}
		clock.advance(time.Second)
	}
	if !l.Check("user@example.com", ActionLogin, p) {
		t.Fatalf("6th attempt within window should be limited")
	}
	// Stays limited while the window holds.
	if !l.Check("user@example.com", ActionLogin, p) {
		t.Fatalf("7th attempt within window should be limited")
	}
}

func TestCheck_WindowElapseResets(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 2, Window: 10 * time.Minute}

	l.Check("a@b.co", ActionLogin, p)
	l.Check("a@b.co", ActionLogin, p)
	if !l.Check("a@b.co", ActionLogin, p) {
		t.Fatalf("3rd attempt should be limited")
	}

	clock.advance(10*time.Minute + time.Second)
	if l.Check("a@b.co", ActionLogin, p) {
		t.Fatalf("attempt after window elapsed should not be limited")
	}
	// The reset record counts the post-window attempt as the first.
	if l.Check("a@b.co", ActionLogin, p) {
		t.Fatalf("2nd attempt of fresh window should not be limited")
	}
	if !l.Check("a@b.co", ActionLogin, p) {
		t.Fatalf("3rd attempt of fresh window should be limited again")
	}
}

func TestClear_ForgivesPriorAttempts(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 1, Window: time.Hour}

	l.Check("x@y.io", ActionRegister, p)
	if !l.Check("x@y.io", ActionRegister, p) {
		t.Fatalf("2nd attempt should be limited")
	}

	l.Clear("x@y.io", ActionRegister)
	if l.Check("x@y.io", ActionRegister, p) {
		t.Fatalf("attempt after Clear should behave as first-ever")
	}
}

func TestCheck_EmailNormalized(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 1, Window: time.Hour}

	l.Check("User@Example.COM", ActionLogin, p)
	if !l.Check("  user@example.com ", ActionLogin, p) {
		t.Fatalf("case and whitespace variants should share one record")
	}
}

func TestCheck_ActionsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 1, Window: time.Hour}

	l.Check("a@b.co", ActionLogin, p)
	if l.Check("a@b.co", ActionRegister, p) {
		t.Fatalf("register attempts must not count against login attempts")
	}
}

func TestCheck_ConcurrentSameKey(t *testing.T) {
	l := New()
	p := Policy{MaxAttempts: 50, Window: time.Hour}

	const goroutines = 100
	var wg sync.WaitGroup
	limited := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limited <- l.Check("burst@example.com", ActionLogin, p)
		}()
	}
	wg.Wait()
	close(limited)

	n := 0
	for b := range limited {
		if b {
			n++
		}
	}
	// 100 serialized attempts against a ceiling of 50: exactly 50 limited.
	if n != 50 {
		t.Fatalf("expected exactly 50 limited attempts, got %d", n)
	}
}

func TestSweep_DropsStaleRecords(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)
	p := Policy{MaxAttempts: 3, Window: time.Minute}

	l.Check("old@example.com", ActionLogin, p)
	clock.advance(2 * time.Minute)

	// Drive enough lookups on another key to trigger the sweep.
	for i := 0; i < sweepEvery; i++ {
		l.Check("hot@example.com", ActionLogin, p)
	}
	if got := l.Len(); got != 1 {
		t.Fatalf("expected stale record swept, have %d records", got)
	}
}

func TestSweep_KeepsRecordsInsideTheirOwnWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(clock.now)

	// Exhaust the registration ceiling for one email.
	for i := 0; i < RegisterPolicy.MaxAttempts; i++ {
		l.Check("victim@example.com", ActionRegister, RegisterPolicy)
	}
	if !l.Check("victim@example.com", ActionRegister, RegisterPolicy) {
		t.Fatalf("registration attempt over the ceiling should be limited")
	}

	// 20 minutes is past the login window but well inside the registration
	// window. A sweep driven by login traffic must not drop the record.
	clock.advance(20 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Check("hot@example.com", ActionLogin, LoginPolicy)
	}

	if !l.Check("victim@example.com", ActionRegister, RegisterPolicy) {
		t.Fatalf("registration key must stay limited for the full registration window")
	}
}

func TestDefaultPolicies(t *testing.T) {
	if LoginPolicy.MaxAttempts != 5 || LoginPolicy.Window != 15*time.Minute {
		t.Fatalf("unexpected login policy: %+v", LoginPolicy)
	}
	if RegisterPolicy.MaxAttempts != 3 || RegisterPolicy.Window != 60*time.Minute {
		t.Fatalf("unexpected register policy: %+v", RegisterPolicy)
	}
}

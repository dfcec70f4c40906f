// Package ratelimit implements a fixed-window attempt limiter for
// authentication actions, keyed by (action, normalized email).
//
// Each key holds a count of attempts and the time of the last one. Within a
// window the count only grows; once it passes the policy's ceiling the key is
// limited until the window elapses, at which point the next attempt resets
// the record. A successful login or registration clears the key entirely so
// earlier failures are forgiven.
//
// The map lives in process memory behind a single mutex, with an
// opportunistic sweep of stale records to bound growth. That makes it a soft
// control only: counters are lost on restart and are not shared between
// horizontally scaled instances. Treat it as abuse damping, not a security
// boundary.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Policy describes how many attempts an action allows inside one window.
type Policy struct {
	// MaxAttempts is the ceiling; the attempt after it is the first limited one.
	MaxAttempts int
	// Window is the fixed interval after which counters reset.
	Window time.Duration
}

// Default policies for the authentication actions.
var (
	// LoginPolicy allows 5 login attempts per 15 minutes per email.
	LoginPolicy = Policy{MaxAttempts: 5, Window: 15 * time.Minute}
	// RegisterPolicy allows 3 registration attempts per 60 minutes per email.
	RegisterPolicy = Policy{MaxAttempts: 3, Window: 60 * time.Minute}
)

// Action names used as key prefixes.
const (
	ActionLogin    = "login"
	ActionRegister = "register"
)

// record tracks the attempts seen for one key within the current window. The
// window is captured from the policy at insert time so a sweep triggered by a
// different action cannot judge this record by the wrong interval.
type record struct {
	attempts int
	last     time.Time
	window   time.Duration
}

// Limiter is a process-wide attempt counter. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time

	// sweepN counts lookups since the last sweep of stale records.
	sweepN int
}

// sweepEvery is the number of lookups between opportunistic sweeps.
const sweepEvery = 1000

// New returns a Limiter using the real clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Limiter reading time from now. Tests substitute a
// fake clock to step through windows deterministically.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		records: make(map[string]*record),
		now:     now,
	}
}

// key builds the map key from an action and a normalized email address.
func key(email, action string) string {
	return action + "|" + strings.ToLower(strings.TrimSpace(email))
}

// Check records one attempt for (email, action) and reports whether the key
// is now over the policy's ceiling.
//
// Semantics:
//   - first attempt for a key starts a window and is never limited
//   - an attempt after the window has elapsed resets the record and is not
//     limited
//   - otherwise the count is incremented, the last-attempt time advances,
//     and the attempt is limited iff the count exceeds MaxAttempts
//
// The read-modify-write on the record happens under the limiter's mutex, so
// concurrent attempts against the same key never lose updates.
func (l *Limiter) Check(email, action string, p Policy) bool {
	k := key(email, action)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Sweep before touching the requested record so a stale entry can be
	// dropped even when it is the one being fetched. Each record is judged by
	// its own window, not the calling policy's: login traffic must never
	// forgive a registration key that is still mid-window.
	l.sweepN++
	if l.sweepN >= sweepEvery {
		for rk, r := range l.records {
			if now.Sub(r.last) > r.window {
				delete(l.records, rk)
			}
		}
		l.sweepN = 0
	}

	r, ok := l.records[k]
	if !ok || now.Sub(r.last) > p.Window {
		l.records[k] = &record{attempts: 1, last: now, window: p.Window}
		return false
	}

	r.attempts++
	r.last = now
	r.window = p.Window
	return r.attempts > p.MaxAttempts
}

// Clear removes the record for (email, action). Call it after the action
// succeeds so prior failed attempts stop counting against the user.
func (l *Limiter) Clear(email, action string) {
	k := key(email, action)
	l.mu.Lock()
	delete(l.records, k)
	l.mu.Unlock()
}

// Len reports the number of live records. Exposed for tests and metrics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

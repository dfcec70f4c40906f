// Package notify carries post-commit invalidation signals from the service
// layer to the presentation layer. After a successful mutation (poll
// created, updated, deleted, or voted on), services publish an event; the
// view layer subscribes and refreshes any cached poll listings it holds.
//
// Delivery is best-effort fan-out over buffered channels: a subscriber that
// falls behind loses events rather than blocking the request path. That is
// acceptable for cache invalidation, where a missed signal costs one stale
// render, not correctness.
package notify

import "sync"

// Kind classifies a revalidation event.
type Kind string

// Event kinds emitted by the services.
const (
	PollCreated Kind = "poll_created"
	PollUpdated Kind = "poll_updated"
	PollDeleted Kind = "poll_deleted"
	VoteCast    Kind = "vote_cast"
)

// Event identifies the resource whose cached listings should be refreshed.
type Event struct {
	Kind   Kind
	PollID string
	// OwnerID is the poll owner whose listing is affected; empty for
	// anonymous-vote events on public tallies.
	OwnerID string
}

// Broker fans events out to subscribers. The zero value is ready to use.
// Safe for concurrent use.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// subBuffer is the per-subscriber channel depth before events are dropped.
const subBuffer = 16

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function that must be called when the subscriber goes away.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subBuffer)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan Event]struct{})
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every live subscriber without blocking. Subscribers
// with a full buffer miss the event.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

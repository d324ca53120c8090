package analysis

import (
	"sync"

	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
)

// DefaultBufferSize is the number of events a subscriber may lag behind
// before it is detached.
const DefaultBufferSize = 256

// Subscription receives the events of one run. The channel is closed after
// the terminal event, or early if the subscriber was detached for lagging.
type Subscription struct {
	ch     chan Event
	runID  string
	b      *broadcaster
	closed bool
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// RunID returns the id of the run this subscription follows. It is empty
// for results served from the cache without a run.
func (s *Subscription) RunID() string {
	return s.runID
}

// Close stops delivery. The run itself keeps going.
func (s *Subscription) Close() {
	if s.b == nil {
		return
	}
	s.b.unsubscribe(s)
}

// closedSubscription returns a subscription that yields events and ends.
func closedSubscription(runID string, events ...Event) *Subscription {
	ch := make(chan Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &Subscription{ch: ch, runID: runID, closed: true}
}

// broadcaster fans the events of one run out to its subscribers. Late
// subscribers first get the starting event and the latest progress snapshot.
// Delivery never blocks: a subscriber whose buffer is full is detached, so
// a stalled client cannot hold up the run or other requests.
type broadcaster struct {
	mu         sync.Mutex
	subs       map[*Subscription]struct{}
	starting   Event
	latest     *Event
	final      *Event
	bufferSize int
}

func newBroadcaster(starting Event, bufferSize int) *broadcaster {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &broadcaster{
		subs:       make(map[*Subscription]struct{}),
		starting:   starting,
		bufferSize: bufferSize,
	}
}

func (b *broadcaster) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		ch:    make(chan Event, b.bufferSize+3),
		runID: b.starting.RunID,
		b:     b,
	}
	sub.ch <- b.starting
	if b.latest != nil {
		sub.ch <- *b.latest
	}
	if b.final != nil {
		sub.ch <- *b.final
		close(sub.ch)
		sub.closed = true
		return sub
	}

	b.subs[sub] = struct{}{}
	metrics.AnalysisSubscribers.Inc()
	return sub
}

func (b *broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked(sub)
}

func (b *broadcaster) detachLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		metrics.AnalysisSubscribers.Dec()
	}
}

// publish delivers e to every subscriber in order. A terminal event closes
// all subscriptions; later publishes are ignored.
func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.final != nil {
		return
	}
	switch {
	case e.Status.Terminal():
		b.final = &e
	case e.Status == StatusProgress:
		b.latest = &e
	}

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			logging.Warn("Detaching analysis subscriber that stopped reading (run %s)", e.RunID)
			b.detachLocked(sub)
		}
	}

	if b.final != nil {
		for sub := range b.subs {
			b.detachLocked(sub)
		}
	}
}

// subscribers returns the number of attached subscribers.
func (b *broadcaster) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// snapshot returns the most recent progress event, if any.
func (b *broadcaster) snapshot() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return Event{}, false
	}
	return *b.latest, true
}

package events

import (
	"sync"
	"sync/atomic"
)

// subscriberBuffer is how many events a slow subscriber may lag before drops.
const subscriberBuffer = 64

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// Filter selects the events a subscriber receives. A nil Filter accepts all.
type Filter func(Event) bool

// ForRun accepts events whose run_id field equals id. An empty id accepts all.
func ForRun(id string) Filter {
	if id == "" {
		return nil
	}
	return func(e Event) bool {
		return runID(e.Fields) == id
	}
}

func (f Filter) accepts(e Event) bool {
	return f == nil || f(e)
}

// Broadcaster fans events out to live subscribers, each with its own filter.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]Filter
	dropped     atomic.Int64
}

var broadcaster = &Broadcaster{
	subscribers: make(map[Subscriber]Filter),
}

// Subscribe adds a subscriber for every event.
func Subscribe() Subscriber {
	return SubscribeFiltered(nil)
}

// SubscribeFiltered adds a subscriber that only receives events accepted by f.
func SubscribeFiltered(f Filter) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	broadcaster.mu.Lock()
	broadcaster.subscribers[ch] = f
	broadcaster.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Subscribers already
// closed by CloseAllSubscribers are ignored.
func Unsubscribe(sub Subscriber) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if _, ok := broadcaster.subscribers[sub]; !ok {
		return
	}
	delete(broadcaster.subscribers, sub)
	close(sub)
}

// broadcast never blocks: a subscriber whose buffer is full misses the event.
func broadcast(e Event) {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()

	for sub, f := range broadcaster.subscribers {
		if !f.accepts(e) {
			continue
		}
		select {
		case sub <- e:
		default:
			broadcaster.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()
	return len(broadcaster.subscribers)
}

// DroppedCount returns how many deliveries were skipped for slow subscribers.
func DroppedCount() int64 {
	return broadcaster.dropped.Load()
}

// RecentEvents returns the last n events from the ring buffer.
// If n is greater than available events, returns all available.
func RecentEvents(n int) []Event {
	return RecentMatching(n, nil)
}

// RecentMatching returns the last n buffered events accepted by f, oldest first.
// n <= 0 returns every match.
func RecentMatching(n int, f Filter) []Event {
	all := buffer.Snapshot()
	if f != nil {
		kept := all[:0]
		for _, e := range all {
			if f(e) {
				kept = append(kept, e)
			}
		}
		all = kept
	}
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// CloseAllSubscribers removes and closes every subscriber. Called on shutdown.
func CloseAllSubscribers() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()

	for sub := range broadcaster.subscribers {
		close(sub)
	}
	broadcaster.subscribers = make(map[Subscriber]Filter)
}

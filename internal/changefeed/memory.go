package changefeed

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrEmptyScope = errors.New("changefeed: empty scope")

// MemoryFeed is an in-process Feed. Handlers run synchronously on the publishing goroutine
// and must not block.
type MemoryFeed struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*memorySubscription
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[uint64]*memorySubscription)}
}

type memorySubscription struct {
	feed    *MemoryFeed
	id      uint64
	scope   string
	filter  Filter
	onEvent func(Event)
	once    sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
	})
	return nil
}

func (f *MemoryFeed) Subscribe(scope string, filter Filter, onEvent func(Event)) (Subscription, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := &memorySubscription{feed: f, id: f.nextID, scope: scope, filter: filter, onEvent: onEvent}
	f.subs[sub.id] = sub
	return sub, nil
}

func (f *MemoryFeed) Publish(_ context.Context, e Event) error {
	f.mu.RLock()
	targets := make([]*memorySubscription, 0, len(f.subs))
	for _, s := range f.subs {
		if slices.Contains(e.Participants, s.scope) && s.filter.Match(e) {
			targets = append(targets, s)
		}
	}
	f.mu.RUnlock()
	for _, s := range targets {
		s.onEvent(e)
	}
	return nil
}

// Subscribers reports the number of live subscriptions.
func (f *MemoryFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

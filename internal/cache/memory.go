package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shinyyama/estate-backend/internal/model"
)

type memoryEntry struct {
	list      *model.ConversationList
	expiresAt time.Time
}

type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, uid string) (*model.ConversationList, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uid]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, uid)
		return nil, false, nil
	}
	return e.list, true, nil
}

func (m *Memory) Set(_ context.Context, uid string, list *model.ConversationList, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[uid] = memoryEntry{list: list, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, uid)
	return nil
}

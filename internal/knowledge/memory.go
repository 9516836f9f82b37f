package knowledge

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultPerTopic = 32
	defaultTTL      = time.Hour
)

// MemoryStore is a threadsafe per-topic store with bounded history and
// per-entry TTL. Oldest entries fall off first.
type MemoryStore struct {
	mu       sync.Mutex
	topics   map[string]*list.List // front = newest
	perTopic int
	ttl      time.Duration
	now      func() time.Time
}

type memEntry struct {
	summary   Summary
	expiresAt time.Time
}

func NewMemoryStore(perTopic int, ttl time.Duration) *MemoryStore {
	if perTopic <= 0 {
		perTopic = defaultPerTopic
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		topics:   make(map[string]*list.List),
		perTopic: perTopic,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Publish(_ context.Context, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ll, ok := m.topics[s.Topic]
	if !ok {
		ll = list.New()
		m.topics[s.Topic] = ll
	}
	if s.At.IsZero() {
		s.At = m.now()
	}
	ll.PushFront(&memEntry{summary: s, expiresAt: m.now().Add(m.ttl)})
	for ll.Len() > m.perTopic {
		ll.Remove(ll.Back())
	}
	return nil
}

func (m *MemoryStore) Query(_ context.Context, topic string, limit int) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ll, ok := m.topics[topic]
	if !ok {
		return nil, nil
	}
	now := m.now()
	var out []Summary
	for ele := ll.Front(); ele != nil; {
		next := ele.Next()
		ent := ele.Value.(*memEntry)
		if now.After(ent.expiresAt) {
			ll.Remove(ele)
		} else {
			out = append(out, ent.summary)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		ele = next
	}
	return out, nil
}

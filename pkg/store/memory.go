package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is the in-memory Store. Safe for concurrent use; contents are
// lost on process exit.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{conversations: make(map[string]*Conversation)}
}

func (m *Memory) EnsureConversation(_ context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv, ok := m.conversations[id]; ok {
		return cloneConversation(conv), nil
	}

	now := time.Now().UTC()
	conv := &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	m.conversations[id] = conv
	return cloneConversation(conv), nil
}

func (m *Memory) AppendExchange(_ context.Context, conversationID string, ex Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return &NotFoundError{ConversationID: conversationID}
	}
	conv.Exchanges = append(conv.Exchanges, ex)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, &NotFoundError{ConversationID: id}
	}
	return cloneConversation(conv), nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.conversations))
	for _, conv := range m.conversations {
		summaries = append(summaries, Summary{
			ID:            conv.ID,
			CreatedAt:     conv.CreatedAt,
			UpdatedAt:     conv.UpdatedAt,
			ExchangeCount: len(conv.Exchanges),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return &NotFoundError{ConversationID: id}
	}
	delete(m.conversations, id)
	return nil
}

func (m *Memory) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, conv := range m.conversations {
		if conv.UpdatedAt.Before(cutoff) {
			delete(m.conversations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations), nil
}

func (m *Memory) Close() error { return nil }

func cloneConversation(conv *Conversation) *Conversation {
	out := &Conversation{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	if len(conv.Exchanges) > 0 {
		out.Exchanges = make([]Exchange, len(conv.Exchanges))
		copy(out.Exchanges, conv.Exchanges)
	}
	return out
}

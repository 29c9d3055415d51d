package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// storeTest exercises the Store contract against any backend.
func storeTest(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("ensure creates and is idempotent", func(t *testing.T) {
		conv, err := s.EnsureConversation(ctx, "conv-1")
		if err != nil {
			t.Fatalf("EnsureConversation: %v", err)
		}
		if conv.ID != "conv-1" || len(conv.Exchanges) != 0 {
			t.Errorf("unexpected new conversation: %+v", conv)
		}

		again, err := s.EnsureConversation(ctx, "conv-1")
		if err != nil {
			t.Fatalf("EnsureConversation (repeat): %v", err)
		}
		if !again.CreatedAt.Equal(conv.CreatedAt) {
			t.Error("repeated ensure recreated the conversation")
		}
	})

	t.Run("append and get", func(t *testing.T) {
		ex := Exchange{
			ID:        "ex-1",
			RequestID: "req-1",
			Input:     "hello there",
			Response:  "a reply",
			Status:    "done",
			Level:     "standard",
			CreatedAt: time.Now().UTC(),
		}
		if err := s.AppendExchange(ctx, "conv-1", ex); err != nil {
			t.Fatalf("AppendExchange: %v", err)
		}

		conv, err := s.Get(ctx, "conv-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(conv.Exchanges) != 1 {
			t.Fatalf("exchange count = %d, want 1", len(conv.Exchanges))
		}
		got := conv.Exchanges[0]
		if got.Input != "hello there" || got.Status != "done" || got.BlockingLayer != "" {
			t.Errorf("stored exchange = %+v", got)
		}
	})

	t.Run("append to missing conversation", func(t *testing.T) {
		err := s.AppendExchange(ctx, "no-such", Exchange{ID: "ex-x", Status: "done", Level: "basic", CreatedAt: time.Now()})
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("error = %v, want *NotFoundError", err)
		}
	})

	t.Run("list and count", func(t *testing.T) {
		if _, err := s.EnsureConversation(ctx, "conv-2"); err != nil {
			t.Fatalf("EnsureConversation: %v", err)
		}

		summaries, err := s.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(summaries) != 2 {
			t.Errorf("List returned %d summaries, want 2", len(summaries))
		}

		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 2 {
			t.Errorf("Count = %d, want 2", n)
		}

		limited, err := s.List(ctx, 1)
		if err != nil {
			t.Fatalf("List(1): %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("List(1) returned %d summaries", len(limited))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "conv-2"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "conv-2"); err == nil {
			t.Error("deleted conversation still readable")
		}

		var notFound *NotFoundError
		if err := s.Delete(ctx, "conv-2"); !errors.As(err, &notFound) {
			t.Errorf("double delete error = %v, want *NotFoundError", err)
		}
	})

	t.Run("prune before cutoff", func(t *testing.T) {
		// conv-1 was updated just now; a cutoff in the past removes
		// nothing, a cutoff in the future removes it.
		deleted, err := s.PruneBefore(ctx, time.Now().UTC().Add(-time.Hour))
		if err != nil {
			t.Fatalf("PruneBefore: %v", err)
		}
		if deleted != 0 {
			t.Errorf("PruneBefore(past) deleted %d, want 0", deleted)
		}

		deleted, err = s.PruneBefore(ctx, time.Now().UTC().Add(time.Hour))
		if err != nil {
			t.Fatalf("PruneBefore: %v", err)
		}
		if deleted != 1 {
			t.Errorf("PruneBefore(future) deleted %d, want 1", deleted)
		}
	})
}

func TestMemory(t *testing.T) {
	storeTest(t, NewMemory())
}

func TestMemory_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.EnsureConversation(ctx, "c"); err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	if err := m.AppendExchange(ctx, "c", Exchange{ID: "e", Status: "done", Level: "basic", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AppendExchange: %v", err)
	}

	conv, _ := m.Get(ctx, "c")
	conv.Exchanges[0].Status = "mutated"

	fresh, _ := m.Get(ctx, "c")
	if fresh.Exchanges[0].Status != "done" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestPruner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.EnsureConversation(ctx, "stale"); err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	// Backdate the conversation past the retention window.
	m.mu.Lock()
	m.conversations["stale"].UpdatedAt = time.Now().UTC().AddDate(0, 0, -120)
	m.mu.Unlock()

	if _, err := m.EnsureConversation(ctx, "fresh"); err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}

	p := NewPruner(m, RetentionConfig{RetentionDays: 90}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune deleted %d, want 1", deleted)
	}
	if _, err := m.Get(ctx, "fresh"); err != nil {
		t.Error("fresh conversation pruned")
	}
}

func TestPruner_DisabledIsNoop(t *testing.T) {
	p := NewPruner(NewMemory(), RetentionConfig{}, nil)
	deleted, err := p.Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Prune = (%d, %v), want (0, nil)", deleted, err)
	}
}

func TestPruner_StartValidatesSchedule(t *testing.T) {
	p := NewPruner(NewMemory(), RetentionConfig{RetentionDays: 30, Schedule: "not a cron"}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid cron expression")
	}
}

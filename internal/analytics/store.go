package analytics

import (
	"context"
	"sync"
	"time"
)

// Store is the append-only ledger behind Analytics. Implementations must be safe for
// concurrent appends.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Entries returns entries at or after since, oldest first. A zero since returns everything.
	Entries(ctx context.Context, since time.Time) ([]Entry, error)
	// ToolCounts reports how many tool entries exist for tool and how many of them succeeded.
	ToolCounts(ctx context.Context, tool string) (calls, successes int, err error)
	// Trim removes entries older than before and reports how many were removed.
	Trim(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// MemoryStore keeps the ledger in process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	// tools mirrors the tool entries still in entries, keyed by tool name
	tools map[string]toolCount
}

type toolCount struct {
	calls, successes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tools: map[string]toolCount{}}
}

func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.count(e, 1)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) count(e Entry, delta int) {
	if e.Type != EntryTool {
		return
	}
	tc := m.tools[e.Tool]
	tc.calls += delta
	if e.Success {
		tc.successes += delta
	}
	if tc.calls <= 0 {
		delete(m.tools, e.Tool)
		return
	}
	m.tools[e.Tool] = tc
}

func (m *MemoryStore) ToolCounts(_ context.Context, tool string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tc := m.tools[tool]
	return tc.calls, tc.successes, nil
}

func (m *MemoryStore) Entries(_ context.Context, since time.Time) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if since.IsZero() || !e.Time.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) Trim(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if !e.Time.Before(before) {
			kept = append(kept, e)
			continue
		}
		m.count(e, -1)
	}
	removed := len(m.entries) - len(kept)
	// clear the tail so trimmed entries can be collected
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = Entry{}
	}
	m.entries = kept
	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

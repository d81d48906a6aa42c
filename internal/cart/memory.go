package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps drafts in process. Entries expire lazily on read and in
// bulk through Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, tableID int) (*Draft, error) {
	m.mu.Lock()
	entry, ok := m.entries[tableID]
	if ok && !m.now().Before(entry.expiresAt) {
		delete(m.entries, tableID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoDraft
	}

	// stored as JSON so callers never share slices with the store
	var d Draft
	if err := json.Unmarshal(entry.payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *MemoryStore) Put(_ context.Context, draft *Draft, ttl time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[draft.TableID] = memoryEntry{payload: payload, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, tableID int) error {
	m.mu.Lock()
	delete(m.entries, tableID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired drafts and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.WithField("expired", n).Debug("Swept cart drafts")
			}
		}
	}
}

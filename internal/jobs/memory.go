package jobs

import (
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	started time.Time
}

// MemoryStore keeps job records in a mutex-guarded map. It backs the whole
// store when the job directory is unwritable, and serves as the overflow
// table for per-record filesystem write failures.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Put(id string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	started := rec.StartTime
	if prev, ok := m.entries[id]; ok {
		// Progress updates don't carry start_time; keep the original
		// creation time so sweeping measures the job's true age.
		started = prev.started
	} else if started.IsZero() {
		started = m.now()
	}
	m.entries[id] = memoryEntry{rec: rec, started: started}
	return nil
}

func (m *MemoryStore) Get(id string) Record {
	if rec, ok := m.lookup(id); ok {
		return rec
	}
	return notFound()
}

func (m *MemoryStore) lookup(id string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e.rec, ok
}

func (m *MemoryStore) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *MemoryStore) Sweep(maxAge time.Duration, onEvict EvictFunc) (int, error) {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	var evicted []struct {
		id  string
		rec Record
	}
	for id, e := range m.entries {
		if e.started.Before(cutoff) {
			evicted = append(evicted, struct {
				id  string
				rec Record
			}{id, e.rec})
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	// Callbacks may be slow (archival writes); run them outside the lock.
	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e.id, e.rec)
		}
	}
	return len(evicted), nil
}

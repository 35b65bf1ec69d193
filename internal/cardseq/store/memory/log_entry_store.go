package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// LogEntryStore is an in-memory append-only audit log keyed by session.
type LogEntryStore struct {
	mu      sync.Mutex
	entries map[string][]types.LogEntry
}

func NewLogEntryStore() *LogEntryStore {
	return &LogEntryStore{entries: make(map[string][]types.LogEntry)}
}

func (s *LogEntryStore) AppendEntries(_ context.Context, sessionID string, entries []types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = append(s.entries[sessionID], entries...)
	return nil
}

func (s *LogEntryStore) ListEntries(_ context.Context, sessionID string) ([]types.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.LogEntry, len(s.entries[sessionID]))
	copy(out, s.entries[sessionID])
	return out, nil
}

func (s *LogEntryStore) ClearEntries(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *LogEntryStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, list := range s.entries {
		kept := list[:0]
		for _, e := range list {
			if e.Timestamp.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.entries, id)
		} else {
			s.entries[id] = kept
		}
	}
	return deleted, nil
}

// Count returns the total number of stored entries. Test-only helper.
func (s *LogEntryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, list := range s.entries {
		n += len(list)
	}
	return n
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// SequenceStore keeps loaded sequences in memory. Intended for tests and dev.
type SequenceStore struct {
	mu        sync.RWMutex
	sequences map[string]store.SequenceRecord
}

func NewSequenceStore() *SequenceStore {
	return &SequenceStore{sequences: make(map[string]store.SequenceRecord)}
}

func (s *SequenceStore) SaveSequence(_ context.Context, rec store.SequenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]types.ExpectedCard, len(rec.Cards))
	copy(cards, rec.Cards)
	rec.Cards = cards
	s.sequences[rec.SequenceID] = rec
	return nil
}

func (s *SequenceStore) Cards(_ context.Context, sequenceID string) ([]types.ExpectedCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sequences[sequenceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSequenceNotFound, sequenceID)
	}
	out := make([]types.ExpectedCard, len(rec.Cards))
	copy(out, rec.Cards)
	return out, nil
}

// Records returns a copy of every saved sequence. Test-only helper.
func (s *SequenceStore) Records() []store.SequenceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SequenceRecord, 0, len(s.sequences))
	for _, rec := range s.sequences {
		out = append(out, rec)
	}
	return out
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

var ErrSequenceNotFound = errors.New("sequence not found")

// SequenceRecord is one loaded file. A new record is written on every load;
// the cards are stored alongside it in order.
type SequenceRecord struct {
	SequenceID string
	SessionID  string
	SourcePath string
	LoadedAt   time.Time
	Cards      []types.ExpectedCard
}

type SequenceStore interface {
	SaveSequence(ctx context.Context, rec SequenceRecord) error
	Cards(ctx context.Context, sequenceID string) ([]types.ExpectedCard, error)
}

package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// LogEntryStore persists audit entries per session. It is append-only apart
// from an explicit operator clear and retention pruning.
type LogEntryStore interface {
	AppendEntries(ctx context.Context, sessionID string, entries []types.LogEntry) error
	ListEntries(ctx context.Context, sessionID string) ([]types.LogEntry, error)
	ClearEntries(ctx context.Context, sessionID string) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

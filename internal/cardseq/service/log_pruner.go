package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
)

// LogPruner periodically deletes persisted audit entries older than a
// configurable retention period. It runs as a background goroutine and is
// stopped via its context or Stop.
//
// A retention of 0 disables pruning entirely.
type LogPruner struct {
	store     store.LogEntryStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

type PrunerConfig struct {
	// RetentionDays is how many days of audit history to keep.
	// 0 keeps everything and the pruner never starts.
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewLogPruner creates a pruner but does not start it.
func NewLogPruner(s store.LogEntryStore, cfg PrunerConfig, logger *log.Logger) *LogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &LogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune and then repeats on the interval until ctx
// is cancelled or Stop is called. Only the first call has any effect.
func (p *LogPruner) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.retention <= 0 {
			p.logger.Printf("log pruner disabled (retention=0)")
			close(p.done)
			return
		}

		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)

		p.logger.Printf("log pruner started (retention=%dd, interval=%s)",
			int(p.retention.Hours()/24), p.interval)
	})
}

// Stop signals the pruner to exit and waits for it. A pruner that was never
// started returns immediately.
func (p *LogPruner) Stop() {
	p.startOnce.Do(func() { close(p.done) })
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *LogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// PruneNow runs one pass synchronously and returns how many rows were
// removed.
func (p *LogPruner) PruneNow(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	return p.store.PruneOlderThan(ctx, cutoff)
}

func (p *LogPruner) prune(ctx context.Context) {
	deleted, err := p.PruneNow(ctx)
	if err != nil {
		p.logger.Printf("log prune error: %v", err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("log prune: deleted %d rows older than %dd",
			deleted, int(p.retention.Hours()/24))
	}
}

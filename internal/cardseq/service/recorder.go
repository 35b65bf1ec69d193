package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

const (
	defaultRecorderQueue = 256
	recordWriteTimeout   = 5 * time.Second
)

// pendingEntry is either one entry to append or, when clear is set, a
// request to delete everything stored for the session so far.
type pendingEntry struct {
	sessionID string
	entry     types.LogEntry
	clear     chan error
}

// Recorder persists audit entries in the background. Record never blocks:
// when the queue is full the entry is dropped and logged. The in-memory audit
// log on the validator stays authoritative, so a failed write is reported
// but never returned to the scan path.
type Recorder struct {
	store  store.LogEntryStore
	logger *log.Logger

	queue chan pendingEntry
	flush chan chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRecorder(s store.LogEntryStore, queueSize int, logger *log.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultRecorderQueue
	}
	return &Recorder{
		store:  s,
		logger: logger,
		queue:  make(chan pendingEntry, queueSize),
		flush:  make(chan chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the writer goroutine. Only the first call has any effect.
func (r *Recorder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			cancel()
			return
		}
		r.started = true
		r.cancel = cancel
		go r.loop(ctx)
	})
}

// Stop rejects further entries, writes whatever is still queued and waits
// for the writer to exit.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		started, cancel := r.started, r.cancel
		r.mu.Unlock()

		if !started {
			close(r.done)
			return
		}
		close(r.queue)
		<-r.done
		cancel()
	})
}

// Record queues one entry for sessionID.
func (r *Recorder) Record(sessionID string, e types.LogEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- pendingEntry{sessionID: sessionID, entry: e}:
	default:
		r.logger.Printf("recorder: queue full, dropped entry %d for session %s", e.Index, sessionID)
	}
}

// Clear deletes the persisted entries of sessionID in queue order: entries
// recorded before the call are removed, entries recorded after it are kept.
// The returned channel yields the store result. Unlike Record, Clear waits
// for queue space.
func (r *Recorder) Clear(sessionID string) <-chan error {
	res := make(chan error, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started || r.closed {
		res <- r.clearStore(context.Background(), sessionID)
		return res
	}

	r.queue <- pendingEntry{sessionID: sessionID, clear: res}
	return res
}

// Flush blocks until every entry queued before the call has been handed to
// the store. It returns immediately when the writer is not running.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.RLock()
	running := r.started && !r.closed
	r.mu.RUnlock()
	if !running {
		return nil
	}

	ack := make(chan struct{})
	select {
	case r.flush <- ack:
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case p, ok := <-r.queue:
			if !ok {
				return
			}
			r.write(ctx, r.drain([]pendingEntry{p}))

		case ack := <-r.flush:
			r.write(ctx, r.drain(nil))
			close(ack)
		}
	}
}

// drain appends whatever is already queued without waiting.
func (r *Recorder) drain(batch []pendingEntry) []pendingEntry {
	for {
		select {
		case p, ok := <-r.queue:
			if !ok {
				return batch
			}
			batch = append(batch, p)
		default:
			return batch
		}
	}
}

// write applies the batch in queue order. Runs of appends between clear
// requests are grouped by session.
func (r *Recorder) write(ctx context.Context, batch []pendingEntry) {
	// Detached so the final drain still lands after the parent is cancelled.
	ctx = context.WithoutCancel(ctx)

	start := 0
	for i, p := range batch {
		if p.clear == nil {
			continue
		}
		r.appendRun(ctx, batch[start:i])
		p.clear <- r.clearStore(ctx, p.sessionID)
		start = i + 1
	}
	r.appendRun(ctx, batch[start:])
}

func (r *Recorder) appendRun(ctx context.Context, run []pendingEntry) {
	if len(run) == 0 {
		return
	}

	var order []string
	bySession := make(map[string][]types.LogEntry)
	for _, p := range run {
		if _, ok := bySession[p.sessionID]; !ok {
			order = append(order, p.sessionID)
		}
		bySession[p.sessionID] = append(bySession[p.sessionID], p.entry)
	}

	wctx, cancel := context.WithTimeout(ctx, recordWriteTimeout)
	defer cancel()

	for _, id := range order {
		if err := r.store.AppendEntries(wctx, id, bySession[id]); err != nil {
			r.logger.Printf("recorder: persist %d entries for session %s: %v", len(bySession[id]), id, err)
		}
	}
}

func (r *Recorder) clearStore(ctx context.Context, sessionID string) error {
	cctx, cancel := context.WithTimeout(ctx, recordWriteTimeout)
	defer cancel()

	if err := r.store.ClearEntries(cctx, sessionID); err != nil {
		r.logger.Printf("recorder: clear session %s: %v", sessionID, err)
		return err
	}
	return nil
}

package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/service"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store/memory"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// failingLogStore rejects every write and counts attempts.
type failingLogStore struct {
	*memory.LogEntryStore
	mu       sync.Mutex
	attempts int
}

func (s *failingLogStore) AppendEntries(context.Context, string, []types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return errors.New("disk full")
}

func entry(i int, st types.Status) types.LogEntry {
	return types.LogEntry{Index: i, Timestamp: time.Now().UTC(), ScannedCode: "X", Status: st}
}

func TestRecorder_FlushPersistsInOrder(t *testing.T) {
	ms := memory.NewLogEntryStore()
	rec := service.NewRecorder(ms, 16, silentLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	for i := 1; i <= 5; i++ {
		rec.Record("sess-a", entry(i, types.StatusOK))
	}
	rec.Record("sess-b", entry(1, types.StatusNotOK))

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, _ := ms.ListEntries(context.Background(), "sess-a")
	if len(got) != 5 {
		t.Fatalf("expected 5 entries for sess-a, got %d", len(got))
	}
	for i, e := range got {
		if e.Index != i+1 {
			t.Errorf("entry %d: expected index %d, got %d", i, i+1, e.Index)
		}
	}
	other, _ := ms.ListEntries(context.Background(), "sess-b")
	if len(other) != 1 {
		t.Errorf("expected 1 entry for sess-b, got %d", len(other))
	}
}

func TestRecorder_StopDrainsQueue(t *testing.T) {
	ms := memory.NewLogEntryStore()
	rec := service.NewRecorder(ms, 64, silentLogger())
	rec.Start(context.Background())

	for i := 1; i <= 20; i++ {
		rec.Record("sess", entry(i, types.StatusOK))
	}
	rec.Stop()

	if ms.Count() != 20 {
		t.Errorf("expected 20 persisted entries after Stop, got %d", ms.Count())
	}
}

func TestRecorder_RecordAfterStopIsIgnored(t *testing.T) {
	ms := memory.NewLogEntryStore()
	rec := service.NewRecorder(ms, 4, silentLogger())
	rec.Start(context.Background())
	rec.Stop()

	// Must not panic on the closed queue.
	rec.Record("sess", entry(1, types.StatusOK))
	rec.Stop()

	if ms.Count() != 0 {
		t.Errorf("expected nothing persisted, got %d", ms.Count())
	}
}

func TestRecorder_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	ms := memory.NewLogEntryStore()
	rec := service.NewRecorder(ms, 2, silentLogger())
	// Not started: nothing drains the queue.

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 10; i++ {
			rec.Record("sess", entry(i, types.StatusOK))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	rec.Stop()
}

func TestRecorder_StoreErrorIsSwallowed(t *testing.T) {
	fs := &failingLogStore{LogEntryStore: memory.NewLogEntryStore()}
	rec := service.NewRecorder(fs, 8, silentLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	rec.Record("sess", entry(1, types.StatusOK))
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.attempts != 1 {
		t.Errorf("expected 1 write attempt, got %d", fs.attempts)
	}
}

func TestRecorder_FlushWithoutStartReturns(t *testing.T) {
	rec := service.NewRecorder(memory.NewLogEntryStore(), 4, silentLogger())
	if err := rec.Flush(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRecorder_ClearRunsInQueueOrder(t *testing.T) {
	ms := memory.NewLogEntryStore()
	rec := service.NewRecorder(ms, 16, silentLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	rec.Record("sess", entry(1, types.StatusOK))
	rec.Record("sess", entry(2, types.StatusOK))
	res := rec.Clear("sess")
	rec.Record("sess", entry(1, types.StatusNotOK))

	select {
	case err := <-res:
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("clear result not delivered")
	}
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, _ := ms.ListEntries(context.Background(), "sess")
	if len(got) != 1 || got[0].Status != types.StatusNotOK {
		t.Errorf("expected only the entry recorded after the clear, got %+v", got)
	}
}

func TestRecorder_ClearWithoutStartIsImmediate(t *testing.T) {
	ms := memory.NewLogEntryStore()
	_ = ms.AppendEntries(context.Background(), "sess", []types.LogEntry{entry(1, types.StatusOK)})

	rec := service.NewRecorder(ms, 4, silentLogger())
	if err := <-rec.Clear("sess"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ms.Count() != 0 {
		t.Errorf("expected store cleared, got %d", ms.Count())
	}
}

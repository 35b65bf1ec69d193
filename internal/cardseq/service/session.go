package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/source"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/validator"
	"github.com/BrandonDHaskell/cardseq/internal/ingest"
)

var (
	ErrConfirmationRequired = errors.New("clearing the log requires confirmation")
	ErrEmptyPath            = errors.New("sequence path is required")
	ErrEmptyPort            = errors.New("serial port name is required")
)

// HealthReporter is told whether the scan source is currently serving.
type HealthReporter interface {
	SetServing(serving bool)
}

type nopHealth struct{}

func (nopHealth) SetServing(bool) {}

type SessionDeps struct {
	Logger    *log.Logger
	Opener    ingest.Opener // nil = real serial ports
	Sequences store.SequenceStore
	Entries   store.LogEntryStore
	Recorder  *Recorder
	Health    HealthReporter

	DefaultBaudRate int
	PollTimeout     time.Duration
	QueueSize       int

	NewID func() string
	Now   func() time.Time
}

// Session is the single validation session of a running server: one
// validator, one serial pipeline, and one audit session id under which every
// log entry is persisted for the life of the process.
type Session struct {
	id       string
	logger   *log.Logger
	val      *validator.Validator
	pipeline *ingest.Pipeline

	sequences store.SequenceStore
	entries   store.LogEntryStore
	recorder  *Recorder
	health    HealthReporter
	baud      int
	newID     func() string
	now       func() time.Time

	mu         sync.Mutex
	sequenceID string
	sourcePath string
	lastErr    string
}

func NewSession(d SessionDeps) *Session {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	if d.Health == nil {
		d.Health = nopHealth{}
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.DefaultBaudRate <= 0 {
		d.DefaultBaudRate = ingest.DefaultBaudRate
	}

	s := &Session{
		id:        d.NewID(),
		logger:    d.Logger,
		sequences: d.Sequences,
		entries:   d.Entries,
		recorder:  d.Recorder,
		health:    d.Health,
		baud:      d.DefaultBaudRate,
		newID:     d.NewID,
		now:       d.Now,
	}

	s.val = validator.New(validator.Options{
		Sink:   s,
		Halter: validator.HalterFunc(s.halt),
		Now:    d.Now,
	})
	s.pipeline = ingest.New(d.Opener, ingest.Config{
		PollTimeout: d.PollTimeout,
		QueueSize:   d.QueueSize,
		Logger:      d.Logger,
	}, s.onLine, s.onPipelineError)

	s.health.SetServing(false)
	return s
}

func (s *Session) ID() string { return s.id }

// ── Validator sink ──────────────────────────────────────────────────────────
//
// Both methods run under the validator's lock and must not touch s.mu.

func (s *Session) OnLogEntry(e types.LogEntry) {
	if s.recorder != nil {
		s.recorder.Record(s.id, e)
	}
}

func (s *Session) OnStatusMessage(msg string) {
	s.logger.Printf("status: %s", msg)
}

func (s *Session) halt() {
	s.pipeline.Halt()
	s.health.SetServing(false)
}

func (s *Session) onLine(line string) {
	s.val.OnScan(line)
}

func (s *Session) onPipelineError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()

	s.health.SetServing(false)
	s.logger.Printf("status: listening stopped: %v", err)
}

// ── Sequence ────────────────────────────────────────────────────────────────

// LoadFile parses path and replaces the expected sequence. On failure the
// sequence is cleared, so later scans are logged as END_OF_SEQUENCE against
// "N/A", and the parse error is returned.
func (s *Session) LoadFile(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrEmptyPath
	}

	cards, err := source.ParseFile(path)
	if err != nil {
		s.val.ClearSequence()
		s.mu.Lock()
		s.sequenceID = ""
		s.sourcePath = ""
		s.lastErr = err.Error()
		s.mu.Unlock()

		s.logger.Printf("sequence load failed: %v", err)
		return err
	}

	s.LoadCards(ctx, path, cards)
	return nil
}

// LoadCards installs an already-parsed sequence and records it under a new
// sequence id. A failed store write is logged; the sequence is still active.
func (s *Session) LoadCards(ctx context.Context, sourcePath string, cards []types.ExpectedCard) string {
	seq := validator.NewSequence(cards)
	s.val.Load(seq)

	seqID := s.newID()
	s.mu.Lock()
	s.sequenceID = seqID
	s.sourcePath = sourcePath
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Printf("sequence loaded: %s (%d cards, sequence=%s)", sourcePath, seq.Len(), seqID)

	if s.sequences != nil {
		rec := store.SequenceRecord{
			SequenceID: seqID,
			SessionID:  s.id,
			SourcePath: sourcePath,
			LoadedAt:   s.now(),
			Cards:      seq.Cards(),
		}
		if err := s.sequences.SaveSequence(ctx, rec); err != nil {
			s.logger.Printf("persist sequence %s: %v", seqID, err)
		}
	}
	return seqID
}

func (s *Session) ClearSequence() {
	s.val.ClearSequence()
	s.mu.Lock()
	s.sequenceID = ""
	s.sourcePath = ""
	s.mu.Unlock()
}

// SetStartCard moves the cursor to index without logging anything.
func (s *Session) SetStartCard(index int) error {
	return s.val.SetCursor(index)
}

func (s *Session) SetStartCardByIdentifier(id string) (int, error) {
	return s.val.SetCursorByIdentifier(id)
}

// ── Scans ───────────────────────────────────────────────────────────────────

// Scan feeds one code as if it had arrived from the scanner.
func (s *Session) Scan(code string) types.ScanResponse {
	entries := s.val.OnScan(code)
	return types.ScanResponse{
		Entries:  entries,
		Snapshot: s.Snapshot(),
	}
}

func (s *Session) StartListening(port string, baudRate int) error {
	port = strings.TrimSpace(port)
	if port == "" {
		return ErrEmptyPort
	}
	if baudRate <= 0 {
		baudRate = s.baud
	}

	if err := s.pipeline.Start(port, baudRate); err != nil {
		return fmt.Errorf("start listening: %w", err)
	}

	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.health.SetServing(true)
	return nil
}

// StopListening stops the pipeline and waits for the port to be released.
func (s *Session) StopListening() {
	s.pipeline.Stop()
	s.health.SetServing(false)
}

func (s *Session) Listening() bool { return s.pipeline.Running() }

// ── Audit log ───────────────────────────────────────────────────────────────

func (s *Session) Entries() []types.LogEntry {
	return s.val.Entries()
}

// ClearLog discards the in-memory audit log and the entries persisted for
// this session. confirmed must be true. Both logs are cleared at the same
// point in the scan stream, so a scan racing the clear ends up in both or in
// neither.
func (s *Session) ClearLog(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	var res <-chan error
	s.val.ClearLogWith(func() {
		if s.recorder != nil {
			res = s.recorder.Clear(s.id)
		}
	})

	var err error
	switch {
	case res != nil:
		select {
		case err = <-res:
		case <-ctx.Done():
			return fmt.Errorf("clear persisted log: %w", ctx.Err())
		}
	case s.entries != nil:
		err = s.entries.ClearEntries(ctx, s.id)
	}
	if err != nil {
		return fmt.Errorf("clear persisted log: %w", err)
	}

	s.logger.Printf("audit log cleared (session=%s)", s.id)
	return nil
}

// PersistedLog returns the stored entries of any session, including past
// server runs. Pending writes for this session are flushed first.
func (s *Session) PersistedLog(ctx context.Context, sessionID string) ([]types.LogEntry, error) {
	if s.entries == nil {
		return nil, nil
	}
	if sessionID == s.id && s.recorder != nil {
		if err := s.recorder.Flush(ctx); err != nil {
			return nil, fmt.Errorf("flush audit log: %w", err)
		}
	}
	return s.entries.ListEntries(ctx, sessionID)
}

// SequenceCards returns the cards stored for a previously loaded sequence.
func (s *Session) SequenceCards(ctx context.Context, sequenceID string) ([]types.ExpectedCard, error) {
	if s.sequences == nil {
		return nil, store.ErrSequenceNotFound
	}
	return s.sequences.Cards(ctx, sequenceID)
}

func (s *Session) Snapshot() types.Snapshot {
	snap := s.val.Snapshot()

	s.mu.Lock()
	snap.SessionID = s.id
	snap.SequenceID = s.sequenceID
	snap.SourcePath = s.sourcePath
	snap.LastError = s.lastErr
	s.mu.Unlock()

	snap.Listening = s.pipeline.Running()
	snap.ListeningPort = s.pipeline.Port()
	snap.ServerTime = s.now().Format(time.RFC3339Nano)
	return snap
}

// Close stops listening. The recorder is owned by the caller.
func (s *Session) Close() {
	s.StopListening()
}

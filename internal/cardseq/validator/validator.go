// Package validator checks scanned codes against an expected card sequence.
//
// A Validator holds a cursor into the loaded sequence and classifies every
// scan as OK, NOT_OK, SKIPPED or END_OF_SEQUENCE. When a scan does not match
// the card under the cursor it searches forward for the first card whose
// code contains the scan (or is contained by it) and, if one exists, marks
// every card in between as skipped and resumes after the match. If nothing
// matches the ingestion source is halted.
//
// All methods are safe for concurrent use; scans and operator actions are
// serialized under a single mutex. Sinks and halters are called with that
// mutex held and must not block or call back into the Validator.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

var (
	ErrOutOfRange        = errors.New("cursor out of range")
	ErrUnknownIdentifier = errors.New("no card with that identifier")
)

// Sink receives every entry as it is appended and a human-readable status
// line after every scan.
type Sink interface {
	OnLogEntry(e types.LogEntry)
	OnStatusMessage(msg string)
}

// Halter stops the scan source after an unrecoverable mismatch.
type Halter interface {
	Halt()
}

// HalterFunc adapts a plain function to Halter.
type HalterFunc func()

func (f HalterFunc) Halt() { f() }

type nopSink struct{}

func (nopSink) OnLogEntry(types.LogEntry) {}
func (nopSink) OnStatusMessage(string)    {}

type Options struct {
	Sink   Sink
	Halter Halter
	Now    func() time.Time
}

type Validator struct {
	mu sync.Mutex

	seq     Sequence
	cursor  int
	scanned bool
	halted  bool
	log     AuditLog
	lastMsg string

	sink   Sink
	halter Halter
	now    func() time.Time
}

func New(opt Options) *Validator {
	v := &Validator{
		sink:   opt.Sink,
		halter: opt.Halter,
		now:    opt.Now,
	}
	if v.sink == nil {
		v.sink = nopSink{}
	}
	if v.now == nil {
		v.now = func() time.Time { return time.Now().UTC() }
	}
	return v
}

// Load replaces the sequence wholesale and resets the cursor. The audit log
// is kept.
func (v *Validator) Load(seq Sequence) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq = seq
	v.cursor = 0
	v.scanned = false
	v.halted = false
}

// ClearSequence drops the loaded sequence. Subsequent scans are logged as
// END_OF_SEQUENCE.
func (v *Validator) ClearSequence() {
	v.Load(Sequence{})
}

// OnScan classifies one scanned code and returns the entries it produced,
// in append order.
func (v *Validator) OnScan(scanned string) []types.LogEntry {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.scanned = true
	ts := v.now()
	var out []types.LogEntry
	emit := func(seqIdx int, code, expected string, st types.Status) {
		e := v.log.Append(types.LogEntry{
			SequenceIndex: seqIdx,
			Timestamp:     ts,
			ScannedCode:   code,
			ExpectedCode:  expected,
			Status:        st,
		})
		out = append(out, e)
		v.sink.OnLogEntry(e)
	}

	n := v.seq.Len()
	if n == 0 || v.cursor >= n {
		expected := types.EndOfSequenceText
		if n == 0 {
			expected = types.NotApplicableText
		}
		emit(v.cursor, scanned, expected, types.StatusEndOfSequence)
		v.cursor++
		v.status(fmt.Sprintf("Scanned: %s - %s", scanned, types.StatusEndOfSequence))
		return out
	}

	expected := v.seq.At(v.cursor).Code
	if scanned == expected {
		emit(v.cursor, scanned, expected, types.StatusOK)
		v.cursor++
		v.status(fmt.Sprintf("Scanned: %s - %s", scanned, types.StatusOK))
		return out
	}

	// The mismatch is always logged, even when recovery then succeeds; the
	// original cursor position therefore also receives a SKIPPED row below.
	emit(v.cursor, scanned, expected, types.StatusNotOK)

	j, ok := v.seq.findForward(v.cursor, scanned)
	if !ok {
		v.halted = true
		if v.halter != nil {
			v.halter.Halt()
		}
		v.cursor++
		v.status(fmt.Sprintf("Scanned: %s - %s (halted: no matching card ahead)", scanned, types.StatusNotOK))
		return out
	}

	for i := v.cursor; i < j; i++ {
		emit(i, types.MissingCode, v.seq.At(i).Code, types.StatusSkipped)
	}
	v.cursor = j
	emit(j, scanned, v.seq.At(j).Code, types.StatusOK)
	v.cursor++
	v.status(fmt.Sprintf("Scanned: %s - %s (Jumped)", scanned, types.StatusOK))
	return out
}

// SetCursor moves the cursor to index without logging. It is the manual
// start-card selection and also clears a halt.
func (v *Validator) SetCursor(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setCursorLocked(index)
}

// SetCursorByIdentifier moves the cursor to the first card whose identifier
// equals id.
func (v *Validator) SetCursorByIdentifier(id string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id = strings.TrimSpace(id)
	for i := 0; i < v.seq.Len(); i++ {
		c := v.seq.At(i)
		if c.Identifier != nil && *c.Identifier == id {
			return i, v.setCursorLocked(i)
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIdentifier, id)
}

func (v *Validator) setCursorLocked(index int) error {
	if index < 0 || index > v.seq.Len() {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, index, v.seq.Len())
	}
	v.cursor = index
	v.halted = false
	if index < v.seq.Len() {
		v.status(fmt.Sprintf("Starting processing from card %d (%s)", index, displayID(v.seq.At(index))))
	}
	return nil
}

// ClearLog discards every audit entry.
func (v *Validator) ClearLog() {
	v.ClearLogWith(nil)
}

// ClearLogWith discards every audit entry and then runs fn before any later
// scan is processed. fn runs with the validator's lock held.
func (v *Validator) ClearLogWith(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log.Clear()
	if fn != nil {
		fn()
	}
}

func (v *Validator) Entries() []types.LogEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.log.Entries()
}

func (v *Validator) Cursor() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

func (v *Validator) State() types.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *Validator) Sequence() Sequence {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seq
}

// Snapshot reports the cursor and the current/next expected cards.
func (v *Validator) Snapshot() types.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := types.Snapshot{
		State:       v.stateLocked(),
		Cursor:      v.cursor,
		Length:      v.seq.Len(),
		LogLength:   v.log.Len(),
		LastMessage: v.lastMsg,
	}
	s.CurrentCode, s.CurrentID = v.displayAt(v.cursor)
	s.NextCode, s.NextID = v.displayAt(v.cursor + 1)
	return s
}

func (v *Validator) stateLocked() types.State {
	switch {
	case v.halted:
		return types.StateHalted
	case !v.scanned:
		return types.StateInitial
	case v.cursor >= v.seq.Len():
		return types.StateExhausted
	default:
		return types.StateActive
	}
}

func (v *Validator) displayAt(i int) (code, id string) {
	switch {
	case v.seq.Len() == 0:
		return types.NotApplicableText, ""
	case i >= v.seq.Len():
		return types.EndOfSequenceText, ""
	default:
		c := v.seq.At(i)
		return c.Code, c.IdentifierOrEmpty()
	}
}

func (v *Validator) status(msg string) {
	v.lastMsg = msg
	v.sink.OnStatusMessage(msg)
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func displayID(c types.ExpectedCard) string {
	if c.Identifier == nil {
		return c.Code
	}
	return *c.Identifier
}

package validator

import "github.com/BrandonDHaskell/cardseq/internal/cardseq/types"

// AuditLog is the append-only record of a session. It is not safe for
// concurrent use on its own; the Validator guards it.
type AuditLog struct {
	entries []types.LogEntry
}

// Append assigns the next row number and stores e.
func (l *AuditLog) Append(e types.LogEntry) types.LogEntry {
	e.Index = len(l.entries) + 1
	l.entries = append(l.entries, e)
	return e
}

func (l *AuditLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log in append order.
func (l *AuditLog) Entries() []types.LogEntry {
	out := make([]types.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear discards every entry.
func (l *AuditLog) Clear() {
	l.entries = nil
}

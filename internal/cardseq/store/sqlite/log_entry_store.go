package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
	dbpkg "github.com/BrandonDHaskell/cardseq/internal/db"
)

type LogEntryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLogEntryStore(db *sql.DB, writer *dbpkg.Worker) *LogEntryStore {
	return &LogEntryStore{db: db, writer: writer}
}

// AppendEntries writes a batch in one transaction, preserving order.
func (s *LogEntryStore) AppendEntries(ctx context.Context, sessionID string, entries []types.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO log_entries(
  session_id, row_index, sequence_index, scanned_at_ms,
  scanned_code, expected_code, status
) VALUES (?, ?, ?, ?, ?, ?, ?);
`)
		if err != nil {
			return fmt.Errorf("AppendEntries prepare: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			ts := e.Timestamp
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			if _, err := stmt.ExecContext(ctx,
				sessionID, e.Index, e.SequenceIndex, ts.UTC().UnixMilli(),
				e.ScannedCode, e.ExpectedCode, string(e.Status),
			); err != nil {
				return fmt.Errorf("AppendEntries insert row %d: %w", e.Index, err)
			}
		}
		return nil
	})
}

func (s *LogEntryStore) ListEntries(ctx context.Context, sessionID string) ([]types.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT row_index, sequence_index, scanned_at_ms, scanned_code, expected_code, status
FROM log_entries
WHERE session_id = ?
ORDER BY id;
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ListEntries query: %w", err)
	}
	defer rows.Close()

	var out []types.LogEntry
	for rows.Next() {
		var (
			e      types.LogEntry
			tsMs   int64
			status string
		)
		if err := rows.Scan(&e.Index, &e.SequenceIndex, &tsMs, &e.ScannedCode, &e.ExpectedCode, &status); err != nil {
			return nil, fmt.Errorf("ListEntries scan: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMs).UTC()
		e.Status = types.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearEntries removes every persisted row of a session. Only reachable
// through an operator-confirmed log clear.
func (s *LogEntryStore) ClearEntries(ctx context.Context, sessionID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM log_entries WHERE session_id = ?;`, sessionID,
		); err != nil {
			return fmt.Errorf("ClearEntries: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes rows scanned before cutoff and returns how many
// were removed. Uses idx_log_entries_time.
func (s *LogEntryStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM log_entries
WHERE scanned_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

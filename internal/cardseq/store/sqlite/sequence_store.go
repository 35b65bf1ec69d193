package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
	dbpkg "github.com/BrandonDHaskell/cardseq/internal/db"
)

type SequenceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSequenceStore(db *sql.DB, writer *dbpkg.Worker) *SequenceStore {
	return &SequenceStore{db: db, writer: writer}
}

func (s *SequenceStore) SaveSequence(ctx context.Context, rec store.SequenceRecord) error {
	if rec.LoadedAt.IsZero() {
		rec.LoadedAt = time.Now().UTC()
	}
	loadedMs := rec.LoadedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sequences(sequence_id, session_id, source_path, card_count, loaded_at_ms)
VALUES (?, ?, ?, ?, ?);
`, rec.SequenceID, rec.SessionID, rec.SourcePath, len(rec.Cards), loadedMs); err != nil {
			return fmt.Errorf("SaveSequence insert sequence: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO sequence_cards(sequence_id, position, numcard, iccid)
VALUES (?, ?, ?, ?);
`)
		if err != nil {
			return fmt.Errorf("SaveSequence prepare cards: %w", err)
		}
		defer stmt.Close()

		for i, c := range rec.Cards {
			// NULL numcard keeps "absent" distinct from an empty identifier.
			var numcard any
			if c.Identifier != nil {
				numcard = *c.Identifier
			}
			if _, err := stmt.ExecContext(ctx, rec.SequenceID, i, numcard, c.Code); err != nil {
				return fmt.Errorf("SaveSequence insert card %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *SequenceStore) Cards(ctx context.Context, sequenceID string) ([]types.ExpectedCard, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sequences WHERE sequence_id = ?;`, sequenceID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrSequenceNotFound, sequenceID)
	}
	if err != nil {
		return nil, fmt.Errorf("Cards lookup sequence: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT numcard, iccid FROM sequence_cards
WHERE sequence_id = ?
ORDER BY position;
`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("Cards query: %w", err)
	}
	defer rows.Close()

	var cards []types.ExpectedCard
	for rows.Next() {
		var (
			numcard sql.NullString
			c       types.ExpectedCard
		)
		if err := rows.Scan(&numcard, &c.Code); err != nil {
			return nil, fmt.Errorf("Cards scan: %w", err)
		}
		if numcard.Valid {
			id := numcard.String
			c.Identifier = &id
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// ParseCSV reads a CSV file whose header names NUMCARD and ICCID columns.
func ParseCSV(r io.Reader) ([]types.ExpectedCard, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", ErrSequenceLoad, err)
	}
	numcard, iccid, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var cards []types.ExpectedCard
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", ErrSequenceLoad, err)
		}
		line, _ := cr.FieldPos(0)
		card, err := rowCard(row, numcard, iccid, line)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

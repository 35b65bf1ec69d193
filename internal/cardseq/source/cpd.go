package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// ParseCPD reads a semicolon-delimited card profile export. Lines before the
// NUMCARD;MAXCARD;DATAFILE;ICCID;IMSI header are ignored.
func ParseCPD(r io.Reader) ([]types.ExpectedCard, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cards          []types.ExpectedCard
		inCards        bool
		numcard, iccid int
		lineNo         int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if !inCards {
			if !strings.HasPrefix(line, cpdHeader) {
				continue
			}
			var err error
			numcard, iccid, err = columnIndex(strings.Split(line, ";"))
			if err != nil {
				return nil, err
			}
			inCards = true
			continue
		}

		if line == "" {
			continue
		}
		card, err := rowCard(strings.Split(line, ";"), numcard, iccid, lineNo)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read cpd: %v", ErrSequenceLoad, err)
	}
	if !inCards {
		return nil, ErrMissingHeader
	}
	return cards, nil
}

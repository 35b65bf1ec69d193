// Package source turns CPD, TXT and CSV card files into an ordered list of
// expected cards.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

var (
	ErrSequenceLoad      = errors.New("sequence load error")
	ErrMissingColumns    = fmt.Errorf("%w: NUMCARD and ICCID columns are required", ErrSequenceLoad)
	ErrMissingHeader     = fmt.Errorf("%w: CPD header not found", ErrSequenceLoad)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file type", ErrSequenceLoad)
)

const (
	colNumCard = "NUMCARD"
	colICCID   = "ICCID"

	cpdHeader = "NUMCARD;MAXCARD;DATAFILE;ICCID;IMSI"
)

// ParseFile reads path and dispatches on its extension.
func ParseFile(path string) ([]types.ExpectedCard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSequenceLoad, path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cpd":
		return ParseCPD(f)
	case ".txt":
		return ParseTXT(f)
	case ".csv":
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
}

// columnIndex returns the positions of NUMCARD and ICCID in header.
func columnIndex(header []string) (numcard, iccid int, err error) {
	numcard, iccid = -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case colNumCard:
			if numcard < 0 {
				numcard = i
			}
		case colICCID:
			if iccid < 0 {
				iccid = i
			}
		}
	}
	if numcard < 0 || iccid < 0 {
		return 0, 0, ErrMissingColumns
	}
	return numcard, iccid, nil
}

func rowCard(fields []string, numcard, iccid, line int) (types.ExpectedCard, error) {
	if numcard >= len(fields) || iccid >= len(fields) {
		return types.ExpectedCard{}, fmt.Errorf("%w: line %d has %d fields", ErrSequenceLoad, line, len(fields))
	}
	return types.NewCard(strings.TrimSpace(fields[numcard]), strings.TrimSpace(fields[iccid])), nil
}

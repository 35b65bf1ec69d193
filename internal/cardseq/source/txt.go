package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// ParseTXT reads one code per non-empty line. Identifiers are absent.
func ParseTXT(r io.Reader) ([]types.ExpectedCard, error) {
	sc := bufio.NewScanner(r)

	var cards []types.ExpectedCard
	for sc.Scan() {
		code := strings.TrimSpace(sc.Text())
		if code == "" {
			continue
		}
		cards = append(cards, types.ExpectedCard{Code: code})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read txt: %v", ErrSequenceLoad, err)
	}
	return cards, nil
}

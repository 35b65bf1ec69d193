package validator

import "github.com/BrandonDHaskell/cardseq/internal/cardseq/types"

// Sequence is an immutable ordered list of expected cards.
type Sequence struct {
	cards []types.ExpectedCard
}

// NewSequence copies cards so later mutation by the caller has no effect.
func NewSequence(cards []types.ExpectedCard) Sequence {
	cp := make([]types.ExpectedCard, len(cards))
	copy(cp, cards)
	return Sequence{cards: cp}
}

func (s Sequence) Len() int { return len(s.cards) }

func (s Sequence) At(i int) types.ExpectedCard { return s.cards[i] }

// Cards returns a copy of the sequence.
func (s Sequence) Cards() []types.ExpectedCard {
	out := make([]types.ExpectedCard, len(s.cards))
	copy(out, s.cards)
	return out
}

// findForward returns the first index j in (from, len) whose code contains,
// or is contained in, scanned. ok is false when nothing matches.
func (s Sequence) findForward(from int, scanned string) (j int, ok bool) {
	for j = from + 1; j < len(s.cards); j++ {
		if containsEither(scanned, s.cards[j].Code) {
			return j, true
		}
	}
	return 0, false
}

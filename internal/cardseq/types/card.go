package types

// ExpectedCard is one row of a loaded sequence. Identifier is the NUMCARD
// column and is nil for formats that do not carry one (TXT).
type ExpectedCard struct {
	Identifier *string `json:"identifier,omitempty"`
	Code       string  `json:"code"`
}

// NewCard is a convenience for building cards with an identifier.
func NewCard(identifier, code string) ExpectedCard {
	id := identifier
	return ExpectedCard{Identifier: &id, Code: code}
}

// IdentifierOrEmpty returns the identifier, or "" when absent.
func (c ExpectedCard) IdentifierOrEmpty() string {
	if c.Identifier == nil {
		return ""
	}
	return *c.Identifier
}

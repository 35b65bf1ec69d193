package types

import "time"

type Status string

const (
	StatusOK            Status = "OK"
	StatusNotOK         Status = "NOT_OK"
	StatusSkipped       Status = "SKIPPED"
	StatusEndOfSequence Status = "END_OF_SEQUENCE"
)

// Display values used in ScannedCode / ExpectedCode for synthetic entries.
const (
	MissingCode       = "MISSING"
	EndOfSequenceText = "End of sequence"
	NotApplicableText = "N/A"
)

// LogEntry is one audited row. Index is the 1-based row number assigned by
// the audit log; SequenceIndex is the cursor position the row refers to.
type LogEntry struct {
	Index         int       `json:"index"`
	SequenceIndex int       `json:"sequence_index"`
	Timestamp     time.Time `json:"timestamp"`
	ScannedCode   string    `json:"scanned_code"`
	ExpectedCode  string    `json:"expected_code"`
	Status        Status    `json:"status"`
}

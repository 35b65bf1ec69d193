// Package export serializes audit log entries for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

// Columns is the export schema, in order.
var Columns = []string{"index", "timestamp", "scanned_code", "expected_code", "status"}

// WriteCSV writes a header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []types.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(row(e)); err != nil {
			return fmt.Errorf("write csv row %d: %w", e.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(e types.LogEntry) []string {
	return []string{
		strconv.Itoa(e.Index),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ScannedCode,
		e.ExpectedCode,
		string(e.Status),
	}
}

// ToProto renders entries as a protobuf ListValue of Structs keyed by the
// export columns.
func ToProto(entries []types.LogEntry) (*structpb.ListValue, error) {
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		values = append(values, map[string]any{
			"index":         e.Index,
			"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
			"scanned_code":  e.ScannedCode,
			"expected_code": e.ExpectedCode,
			"status":        string(e.Status),
		})
	}
	lv, err := structpb.NewList(values)
	if err != nil {
		return nil, fmt.Errorf("build proto list: %w", err)
	}
	return lv, nil
}

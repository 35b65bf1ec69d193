package source_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/source"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/types"
)

const sampleCPD = `PROFILE;SIM-BATCH-7
OPERATOR;ACME
NUMCARD;MAXCARD;DATAFILE;ICCID;IMSI
C1;4;df1;8944000000000000001;208010000000001

C2;4;df1;8944000000000000002;208010000000002
C3;4;df1;8944000000000000003;208010000000003
C4;4;df1;8944000000000000004;208010000000004
`

const sampleTXT = `8944000000000000001
8944000000000000002

8944000000000000003
8944000000000000004
`

const sampleCSV = `IMSI,ICCID,NUMCARD
208010000000001,8944000000000000001,C1
208010000000002,8944000000000000002,C2
208010000000003,8944000000000000003,C3
208010000000004,8944000000000000004,C4
`

func codes(cards []types.ExpectedCard) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Code
	}
	return out
}

// ── CPD ─────────────────────────────────────────────────────────────────────

func TestParseCPD_SkipsPreambleAndBlankLines(t *testing.T) {
	cards, err := source.ParseCPD(strings.NewReader(sampleCPD))
	if err != nil {
		t.Fatalf("ParseCPD: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(cards))
	}
	if cards[0].Identifier == nil || *cards[0].Identifier != "C1" {
		t.Errorf("expected identifier C1, got %v", cards[0].Identifier)
	}
	if cards[3].Code != "8944000000000000004" {
		t.Errorf("unexpected last code %q", cards[3].Code)
	}
}

func TestParseCPD_NoHeader(t *testing.T) {
	_, err := source.ParseCPD(strings.NewReader("C1;4;df1;894400;2080\n"))
	if !errors.Is(err, source.ErrSequenceLoad) {
		t.Fatalf("expected ErrSequenceLoad, got %v", err)
	}
}

func TestParseCPD_ShortRow(t *testing.T) {
	in := "NUMCARD;MAXCARD;DATAFILE;ICCID;IMSI\nC1;4\n"
	_, err := source.ParseCPD(strings.NewReader(in))
	if !errors.Is(err, source.ErrSequenceLoad) {
		t.Fatalf("expected ErrSequenceLoad, got %v", err)
	}
}

// ── TXT ─────────────────────────────────────────────────────────────────────

func TestParseTXT_NoIdentifiers(t *testing.T) {
	cards, err := source.ParseTXT(strings.NewReader(sampleTXT))
	if err != nil {
		t.Fatalf("ParseTXT: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(cards))
	}
	for i, c := range cards {
		if c.Identifier != nil {
			t.Errorf("card %d: expected nil identifier, got %q", i, *c.Identifier)
		}
	}
}

// ── CSV ─────────────────────────────────────────────────────────────────────

func TestParseCSV_ColumnsByName(t *testing.T) {
	cards, err := source.ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(cards))
	}
	if got := cards[1].IdentifierOrEmpty(); got != "C2" {
		t.Errorf("expected identifier C2, got %q", got)
	}
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := source.ParseCSV(strings.NewReader("NUMCARD,IMSI\nC1,2080\n"))
	if !errors.Is(err, source.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if !errors.Is(err, source.ErrSequenceLoad) {
		t.Fatalf("expected ErrSequenceLoad in chain, got %v", err)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := source.ParseCSV(strings.NewReader(""))
	if !errors.Is(err, source.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

// ── Round trip across formats ───────────────────────────────────────────────

func TestParseFile_FormatsAgreeOnCodeOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"cards.CPD": sampleCPD,
		"cards.txt": sampleTXT,
		"cards.csv": sampleCSV,
	}

	var want []string
	for _, name := range []string{"cards.CPD", "cards.txt", "cards.csv"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		cards, err := source.ParseFile(path)
		if err != nil {
			t.Fatalf("ParseFile(%s): %v", name, err)
		}
		got := codes(cards)
		if want == nil {
			want = got
			continue
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s: code order %v, want %v", name, got, want)
		}
	}
}

func TestParseFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := source.ParseFile(path)
	if !errors.Is(err, source.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := source.ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, source.ErrSequenceLoad) {
		t.Fatalf("expected ErrSequenceLoad, got %v", err)
	}
}

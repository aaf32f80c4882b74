package ingest

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestDecodeUpload_UTF8(t *testing.T) {
	text, err := DecodeUpload([]byte("D03,2026/09/01,1234\n"))
	if err != nil {
		t.Fatalf("DecodeUpload failed: %v", err)
	}
	if text != "D03,2026/09/01,1234\n" {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestDecodeUpload_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("D03,a,b")...)
	text, err := DecodeUpload(data)
	if err != nil {
		t.Fatalf("DecodeUpload failed: %v", err)
	}
	if text != "D03,a,b" {
		t.Errorf("BOM not stripped: %q", text)
	}
}

func TestDecodeUpload_ShiftJIS(t *testing.T) {
	// "守谷" in cp932 is not valid UTF-8, forcing the fallback path.
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte("守谷,テスト"))
	if err != nil {
		t.Fatalf("test setup: %v", err)
	}

	text, err := DecodeUpload(encoded)
	if err != nil {
		t.Fatalf("DecodeUpload failed: %v", err)
	}
	if text != "守谷,テスト" {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestDecodeUpload_Empty(t *testing.T) {
	if _, err := DecodeUpload(nil); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestDecodeUpload_TooLarge(t *testing.T) {
	data := make([]byte, MaxUploadBytes+1)
	if _, err := DecodeUpload(data); err == nil {
		t.Error("expected error for oversized file")
	}
}

func TestParseRows_HeaderSkipped(t *testing.T) {
	text := strings.Join([]string{
		"センター,納品日,仕入先,MD経費,DC経費,商品,バラ数,原価,通過,値引",
		"D03,2026/09/01,1234,0,0,100001,24,105.50,1,0",
		"D04,2026/09/02,5678,0,0,100002,12,200,2,5",
	}, "\n")

	rows, err := ParseRows(text)
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}

	// Line numbers count from the top of the file, header included.
	if rows[0].LineNo != 2 || rows[1].LineNo != 3 {
		t.Errorf("line numbers wrong: %d, %d", rows[0].LineNo, rows[1].LineNo)
	}
	if rows[0].Center != "D03" || rows[0].ItemCode != "100001" || rows[0].LooseQty != "24" {
		t.Errorf("row 0 fields wrong: %+v", rows[0])
	}
	if rows[1].UnitDiscount != "5" {
		t.Errorf("unit discount wrong: %q", rows[1].UnitDiscount)
	}
}

func TestParseRows_NoHeader(t *testing.T) {
	rows, err := ParseRows("D03,2026/09/01,1234,0,0,100001,24,105.50,1,0\n")
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row, got %d", len(rows))
	}
	if rows[0].LineNo != 1 {
		t.Errorf("line number wrong: %d", rows[0].LineNo)
	}
}

func TestParseRows_BlankLinesKeepNumbering(t *testing.T) {
	text := strings.Join([]string{
		"センター,納品日,仕入先,MD経費,DC経費,商品,バラ数,原価,通過,値引",
		"D03,2026/09/01,1234,0,0,100001,24,105.50,1,0",
		"",
		"D04,2026/09/02,5678,0,0,100002,12,200,2,5",
		"",
	}, "\n")

	rows, err := ParseRows(text)
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}

	// A blank line carries no row but still occupies its editor line, so
	// the row after it reports line 4, not 3.
	if rows[0].LineNo != 2 || rows[1].LineNo != 4 {
		t.Errorf("line numbers wrong: %d, %d", rows[0].LineNo, rows[1].LineNo)
	}
}

func TestParseRows_ShortRowPadded(t *testing.T) {
	rows, err := ParseRows("D03,2026/09/01,1234,0,0,100001,24\n")
	if err != nil {
		t.Fatalf("ParseRows failed: %v", err)
	}
	if rows[0].UnitCost != "" || rows[0].PassFlag != "" || rows[0].UnitDiscount != "" {
		t.Errorf("missing columns not padded: %+v", rows[0])
	}
}

func TestParseRows_HeaderOnly(t *testing.T) {
	if _, err := ParseRows("センター,納品日,仕入先\n"); err == nil {
		t.Error("expected error for header-only file")
	}
}

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		rec  []string
		want bool
	}{
		{"numeric vendor", []string{"D03", "2026/09/01", "1234"}, false},
		{"text vendor", []string{"センター", "納品日", "仕入先"}, true},
		{"empty vendor", []string{"D03", "2026/09/01", ""}, true},
		{"too short", []string{"D03"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHeaderRow(tt.rec); got != tt.want {
				t.Errorf("isHeaderRow(%v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

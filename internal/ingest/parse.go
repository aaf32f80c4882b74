package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
)

// MaxUploadBytes caps the accepted file size.
const MaxUploadBytes = 10 * 1024 * 1024

// rawColumns is the fixed column count of the upload format:
// center, delivery_date, vendor, fee_md, fee_dc, item_code, loose_qty,
// unit_cost, pass_flag, unit_discount.
const rawColumns = 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeUpload turns the uploaded bytes into UTF-8 text.
// UTF-8 is tried first (BOM tolerated), then ShiftJIS (cp932); anything
// else is rejected.
func DecodeUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperror.NewValidation("file is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", apperror.NewValidation("file exceeds the 10MB limit")
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err == nil && utf8.Valid(decoded) {
		return string(decoded), nil
	}
	return "", apperror.NewValidation("unrecognized text encoding (UTF-8 or Shift_JIS only)")
}

// ParseRows splits decoded upload text into raw rows in file order.
//
// The first non-blank line is treated as a header and skipped when its 3rd
// column is not numeric. Blank lines carry no data but still count, so row
// errors reported later match what the user sees in a text editor.
func ParseRows(text string) ([]RawRow, error) {
	lines := strings.Split(text, "\n")
	rows := make([]RawRow, 0, len(lines))
	headerChecked := false
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := splitFields(line)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("cannot read line %d: %v", i+1, err))
		}
		if !headerChecked {
			headerChecked = true
			if isHeaderRow(rec) {
				continue
			}
		}

		for len(rec) < rawColumns {
			rec = append(rec, "")
		}
		rows = append(rows, RawRow{
			LineNo:       i + 1,
			Center:       strings.TrimSpace(rec[0]),
			DeliveryDate: strings.TrimSpace(rec[1]),
			Vendor:       strings.TrimSpace(rec[2]),
			FeeMD:        strings.TrimSpace(rec[3]),
			FeeDC:        strings.TrimSpace(rec[4]),
			ItemCode:     strings.TrimSpace(rec[5]),
			LooseQty:     strings.TrimSpace(rec[6]),
			UnitCost:     strings.TrimSpace(rec[7]),
			PassFlag:     strings.TrimSpace(rec[8]),
			UnitDiscount: strings.TrimSpace(rec[9]),
		})
	}
	if len(rows) == 0 {
		return nil, apperror.NewValidation("file contains no data rows")
	}
	return rows, nil
}

// splitFields parses one physical line as a single CSV record so quoted
// fields keep working.
func splitFields(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

// isHeaderRow applies the header heuristic: the 3rd column of a data row is
// the vendor code, which is numeric; a non-numeric value means header.
func isHeaderRow(rec []string) bool {
	if len(rec) < 3 {
		return false
	}
	v := strings.TrimSpace(rec[2])
	if v == "" {
		return true
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return true
		}
	}
	return false
}

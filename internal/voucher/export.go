package voucher

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// exportHeader matches the column layout the downstream spreadsheet macros
// expect. Order is load-bearing.
var exportHeader = []string{
	"伝票番号", "行", "センター", "部門", "部門名",
	"仕入先", "仕入先名", "商品コード", "商品名", "メーカー",
	"発注日", "納品日", "数量", "原価単価", "値引額",
	"MD経費", "DC経費", "通過区分", "担当者",
}

const exportDateLayout = "2006/01/02"

// ExportCSV renders voucher rows as a cp932-encoded CSV with CRLF line
// endings, the format the back-office tooling ingests.
func ExportCSV(rows []ListRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.VoucherNo,
			fmt.Sprintf("%d", r.LineNo),
			r.CenterName,
			r.DeptCode,
			r.DeptName,
			r.VendorCode,
			r.VendorName,
			r.ItemCode,
			r.ItemName,
			r.Manufacturer,
			r.OrderDate.Format(exportDateLayout),
			r.DeliveryDate.Format(exportDateLayout),
			fmt.Sprintf("%d", r.Qty),
			r.UnitCost.String(),
			r.DiscTotal.String(),
			r.FeeMD.String(),
			r.FeeDC.String(),
			r.PassFlag,
			r.Operator,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %s/%d: %w", r.VoucherNo, r.LineNo, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode cp932: %w", err)
	}
	return encoded, nil
}

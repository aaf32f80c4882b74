// Package voucher provides the numbered purchase/discount documents written
// to the distribution-center ledgers, and the writer that commits staged
// batches into them.
package voucher

import (
	"time"

	"github.com/toyohara-midori/dcin/internal/core/types"
	"github.com/toyohara-midori/dcin/internal/ingest"
)

// Voucher is one numbered purchase document. Immutable once written.
type Voucher struct {
	Number       string    `db:"voucher_no" json:"number"`
	Center       string    `db:"center" json:"center"`
	DeptCode     string    `db:"dept_code" json:"deptCode"`
	VendorCode   string    `db:"vendor_code" json:"vendorCode"`
	OrderDate    time.Time `db:"order_date" json:"orderDate"`
	DeliveryDate time.Time `db:"delivery_date" json:"deliveryDate"`
	Operator     string    `db:"operator" json:"operator"`
	Lines        []Line    `db:"-" json:"lines"`
}

// Line is one voucher line. Line numbers are 1-based and unique within the
// document; a voucher never carries more than ingest.MaxChunkLines lines.
type Line struct {
	LineNo    int         `db:"line_no" json:"lineNo"`
	ItemCode  string      `db:"item_code" json:"itemCode"`
	Qty       int64       `db:"qty" json:"qty"` // case quantity
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	DiscTotal types.Money `db:"discount_total" json:"discountTotal"`
	FeeMD     types.Money `db:"fee_md" json:"feeMD"`
	FeeDC     types.Money `db:"fee_dc" json:"feeDC"`
	PassFlag  string      `db:"pass_flag" json:"passFlag"`
}

// DiscountVoucher records per-line discounts against a parent voucher.
// Allocated from its own numbering series; its lines carry the parent
// purchase document number as a back-reference, not ownership.
type DiscountVoucher struct {
	Number     string         `db:"discount_no" json:"number"`
	PurchaseNo string         `db:"purchase_no" json:"purchaseNo"`
	Center     string         `db:"center" json:"center"`
	Lines      []DiscountLine `db:"-" json:"lines"`
}

// DiscountLine is one discount-bearing line of the parent chunk.
type DiscountLine struct {
	LineNo   int         `db:"line_no" json:"lineNo"`
	ItemCode string      `db:"item_code" json:"itemCode"`
	Qty      int64       `db:"qty" json:"qty"`
	Amount   types.Money `db:"amount" json:"amount"`
}

// BatchLogEntry is the durable audit trail: one row per chunk linking the
// batch to the voucher numbers it produced, so later searches can resolve
// which batch produced a given voucher.
type BatchLogEntry struct {
	BatchID    string    `db:"batch_id" json:"batchId"`
	UserID     string    `db:"user_id" json:"userId"`
	PurchaseNo string    `db:"purchase_no" json:"purchaseNo"`
	DiscountNo string    `db:"discount_no" json:"discountNo,omitempty"` // empty = none
	Center     string    `db:"center" json:"center"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// FromChunk builds the purchase voucher for one chunk. The chunk's rows are
// already in item-code order; line numbers follow that order 1..N.
func FromChunk(number, operator string, c ingest.Chunk) Voucher {
	v := Voucher{
		Number:       number,
		Center:       c.Key.Center,
		DeptCode:     c.Key.DeptCode,
		VendorCode:   c.Key.VendorCode,
		DeliveryDate: c.Key.DeliveryDate,
		Operator:     operator,
		Lines:        make([]Line, 0, len(c.Rows)),
	}
	for i, r := range c.Rows {
		if i == 0 {
			v.OrderDate = r.OrderDate
		}
		v.Lines = append(v.Lines, Line{
			LineNo:    i + 1,
			ItemCode:  r.ItemCode,
			Qty:       r.CaseQty,
			UnitCost:  r.UnitCost,
			DiscTotal: r.DiscTotal,
			FeeMD:     r.FeeMD,
			FeeDC:     r.FeeDC,
			PassFlag:  r.PassFlag,
		})
	}
	return v
}

// DiscountLinesFor selects the discount-bearing lines of a chunk. The
// returned lines carry only rows whose discount total is positive,
// renumbered 1..N; an empty result means no discount voucher is created.
func DiscountLinesFor(c ingest.Chunk) []DiscountLine {
	var lines []DiscountLine
	for _, r := range c.Rows {
		if !r.DiscTotal.IsPositive() {
			continue
		}
		lines = append(lines, DiscountLine{
			LineNo:   len(lines) + 1,
			ItemCode: r.ItemCode,
			Qty:      r.CaseQty,
			Amount:   r.DiscTotal,
		})
	}
	return lines
}

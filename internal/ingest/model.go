// Package ingest implements the batch voucher ingestion pipeline:
// parse and enrich an uploaded delivery file, stage it per user, re-validate
// the staged rows in bulk, then group, chunk and commit them as numbered
// vouchers.
package ingest

import (
	"time"

	"github.com/toyohara-midori/dcin/internal/core/types"
)

// Center codes of the two distribution centers. Each has its own
// purchase-ledger table.
const (
	CenterMoriya = "D03"
	CenterSayama = "D04"
)

// CenterName maps a center code to its display name.
func CenterName(code string) string {
	switch code {
	case CenterMoriya:
		return "守谷C"
	case CenterSayama:
		return "狭山日高C"
	}
	return code
}

// IsKnownCenter reports whether code is one of the two modeled centers.
func IsKnownCenter(code string) bool {
	return code == CenterMoriya || code == CenterSayama
}

// RawRow is one line of the uploaded file in its fixed column order.
type RawRow struct {
	// LineNo is 1-based and counts the original file lines, including a
	// skipped header row.
	LineNo int

	Center       string
	DeliveryDate string
	Vendor       string
	FeeMD        string
	FeeDC        string
	ItemCode     string
	LooseQty     string
	UnitCost     string
	PassFlag     string
	UnitDiscount string
}

// StagedRow is an enriched, typed line record. It is produced by the
// validator, persisted by the staging store, and consumed by the chunking
// engine and the ledger writer.
type StagedRow struct {
	LineNo       int         `db:"line_no" json:"lineNo"`
	Center       string      `db:"center" json:"center"`
	DeptCode     string      `db:"dept_code" json:"deptCode"`
	DeptName     string      `db:"dept_name" json:"deptName"`
	VendorCode   string      `db:"vendor_code" json:"vendorCode"`
	VendorName   string      `db:"vendor_name" json:"vendorName"`
	OrderDate    time.Time   `db:"order_date" json:"orderDate"`
	DeliveryDate time.Time   `db:"delivery_date" json:"deliveryDate"`
	ItemCode     string      `db:"item_code" json:"itemCode"`
	JAN          string      `db:"jan" json:"jan"`
	ItemName     string      `db:"item_name" json:"itemName"`
	Manufacturer string      `db:"manufacturer" json:"manufacturer"`
	LooseQty     int64       `db:"loose_qty" json:"looseQty"`
	CaseQty      int64       `db:"case_qty" json:"caseQty"`
	UnitCost     types.Money `db:"unit_cost" json:"unitCost"`
	UnitDiscount types.Money `db:"unit_discount" json:"unitDiscount"`
	FeeMD        types.Money `db:"fee_md" json:"feeMD"`
	FeeDC        types.Money `db:"fee_dc" json:"feeDC"`
	CostTotal    types.Money `db:"cost_total" json:"costTotal"`
	DiscTotal    types.Money `db:"discount_total" json:"discountTotal"`
	PassFlag     string      `db:"pass_flag" json:"passFlag"`

	// ErrMsg accumulates bracketed tags from the bulk checker.
	// Empty means the row is currently valid.
	ErrMsg string `db:"err_msg" json:"errMsg"`
}

// HasError reports whether the row carries any error annotation.
func (r *StagedRow) HasError() bool { return r.ErrMsg != "" }

// Batch is one user's staged, not-yet-committed upload.
type Batch struct {
	ID        string      `db:"batch_id" json:"batchId"`
	UserID    string      `db:"user_id" json:"userId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	Rows      []StagedRow `db:"-" json:"rows"`
}

// GroupKey identifies one voucher group. Key order matters: it determines
// voucher boundaries, not sort output.
type GroupKey struct {
	VendorCode   string
	DeliveryDate time.Time
	Center       string
	DeptCode     string
}

// VoucherGroup is the set of staged rows sharing one GroupKey, sorted by
// item code ascending. Ephemeral: computed at commit time, never persisted.
type VoucherGroup struct {
	Key  GroupKey
	Rows []StagedRow
}

// Chunk is a contiguous slice of at most MaxChunkLines rows taken in
// item-code order from a VoucherGroup. Each chunk becomes exactly one
// purchase voucher.
type Chunk struct {
	Key  GroupKey
	Rows []StagedRow
}

// MaxChunkLines is the voucher line capacity.
const MaxChunkLines = 6

// DiscountSum returns the total discount amount across the chunk's lines.
func (c Chunk) DiscountSum() types.Money {
	sum := types.Zero()
	for _, r := range c.Rows {
		sum = sum.Add(r.DiscTotal)
	}
	return sum
}

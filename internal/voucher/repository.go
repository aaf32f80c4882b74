package voucher

import (
	"context"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/types"
)

// LedgerRepository performs the multi-table inserts for one chunk. Every
// method runs against the transaction in ctx when one is present.
type LedgerRepository interface {
	// InsertVoucher writes one ledger row per line into the purchase ledger
	// of the voucher's center.
	InsertVoucher(ctx context.Context, v Voucher) error

	// InsertDiscount writes the discount-ledger rows referencing the parent
	// purchase document number.
	InsertDiscount(ctx context.Context, d DiscountVoucher) error

	// InsertBatchLog writes the audit row for one committed chunk.
	InsertBatchLog(ctx context.Context, e BatchLogEntry) error
}

// ListFilter selects vouchers for the search screen and the CSV export.
type ListFilter struct {
	VoucherNo    string
	VoucherNos   []string // checkbox selection on the list screen
	Center       string   // code or display name
	DeptCode     string
	VendorCode   string
	DeliveryDate *time.Time
	MakerType    string // "jv", "regular" or empty
	SortBy       string
	SortDesc     bool

	// FirstLineOnly collapses the list to one row per voucher (the screen
	// view); the export view returns every line.
	FirstLineOnly bool
}

// HasCriteria reports whether any selective filter is set.
func (f ListFilter) HasCriteria() bool {
	return f.VoucherNo != "" || len(f.VoucherNos) > 0 || f.Center != "" ||
		f.DeptCode != "" || f.VendorCode != "" || f.DeliveryDate != nil ||
		f.MakerType != ""
}

// ListRow is one row of the voucher search result, master names joined in.
type ListRow struct {
	VoucherNo    string      `db:"voucher_no" json:"voucherNo"`
	LineNo       int         `db:"line_no" json:"lineNo"`
	Center       string      `db:"center" json:"center"`
	CenterName   string      `db:"-" json:"centerName"`
	DeptCode     string      `db:"dept_code" json:"deptCode"`
	DeptName     string      `db:"dept_name" json:"deptName"`
	VendorCode   string      `db:"vendor_code" json:"vendorCode"`
	VendorName   string      `db:"vendor_name" json:"vendorName"`
	ItemCode     string      `db:"item_code" json:"itemCode"`
	ItemName     string      `db:"item_name" json:"itemName"`
	Manufacturer string      `db:"manufacturer" json:"manufacturer"`
	OrderDate    time.Time   `db:"order_date" json:"orderDate"`
	DeliveryDate time.Time   `db:"delivery_date" json:"deliveryDate"`
	Qty          int64       `db:"qty" json:"qty"`
	UnitCost     types.Money `db:"unit_cost" json:"unitCost"`
	DiscTotal    types.Money `db:"discount_total" json:"discountTotal"`
	FeeMD        types.Money `db:"fee_md" json:"feeMD"`
	FeeDC        types.Money `db:"fee_dc" json:"feeDC"`
	PassFlag     string      `db:"pass_flag" json:"passFlag"`
	Operator     string      `db:"operator" json:"operator"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}

// FilterOptions feeds the search screen's dropdowns.
type FilterOptions struct {
	Centers []string `json:"centers"`
	Depts   []string `json:"depts"`
	Vendors []string `json:"vendors"`
}

// Detail is one voucher with all lines and computed totals.
type Detail struct {
	VoucherNo    string       `json:"voucherNo"`
	Center       string       `json:"center"`
	CenterName   string       `json:"centerName"`
	DeptCode     string       `json:"deptCode"`
	DeptName     string       `json:"deptName"`
	VendorCode   string       `json:"vendorCode"`
	VendorName   string       `json:"vendorName"`
	DeliveryDate time.Time    `json:"deliveryDate"`
	Operator     string       `json:"operator"`
	TotalCases   int64        `json:"totalCases"`
	TotalCost    types.Money  `json:"totalCost"`
	Lines        []DetailLine `json:"lines"`
}

// DetailLine is one line of the detail view.
type DetailLine struct {
	LineNo       int         `db:"line_no" json:"lineNo"`
	ItemCode     string      `db:"item_code" json:"itemCode"`
	JAN          string      `db:"jan" json:"jan"`
	ItemName     string      `db:"item_name" json:"itemName"`
	Spec         string      `db:"spec" json:"spec"`
	Manufacturer string      `db:"manufacturer" json:"manufacturer"`
	ItemsPerCase int64       `db:"items_per_case" json:"itemsPerCase"`
	Qty          int64       `db:"qty" json:"qty"`
	UnitCost     types.Money `db:"unit_cost" json:"unitCost"`
	RowTotal     types.Money `db:"row_total" json:"rowTotal"`
	Discount     types.Money `db:"discount_total" json:"discount"`
}

// SearchRepository serves the voucher list, detail and export flows over
// both center ledgers.
type SearchRepository interface {
	List(ctx context.Context, f ListFilter) ([]ListRow, error)
	GetDetail(ctx context.Context, voucherNo string) (*Detail, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/toyohara-midori/dcin/internal/ingest"
	"github.com/toyohara-midori/dcin/internal/voucher"
)

const (
	purchaseTableMoriya = "dc_purchase_03"
	purchaseTableSayama = "dc_purchase_04"
	discountTable       = "dc_discounts"
	batchLogTable       = "batch_log"
)

// purchaseTableFor maps a center code to its ledger table. Each center keeps
// its own purchase ledger with an identical layout.
func purchaseTableFor(center string) (string, error) {
	switch center {
	case ingest.CenterMoriya:
		return purchaseTableMoriya, nil
	case ingest.CenterSayama:
		return purchaseTableSayama, nil
	default:
		return "", fmt.Errorf("no purchase ledger for center %q", center)
	}
}

// LedgerRepo writes committed vouchers into the center ledgers. All methods
// expect to run inside the chunk transaction carried by ctx.
type LedgerRepo struct {
	txm *TxManager
}

var _ voucher.LedgerRepository = (*LedgerRepo)(nil)

// NewLedgerRepo creates the ledger repository.
func NewLedgerRepo(txm *TxManager) *LedgerRepo {
	return &LedgerRepo{txm: txm}
}

func (r *LedgerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// InsertVoucher writes one ledger row per line into the purchase ledger of
// the voucher's center.
func (r *LedgerRepo) InsertVoucher(ctx context.Context, v voucher.Voucher) error {
	table, err := purchaseTableFor(v.Center)
	if err != nil {
		return err
	}

	q := r.builder().
		Insert(table).
		Columns("voucher_no", "line_no", "center", "dept_code", "vendor_code",
			"order_date", "delivery_date", "item_code", "qty", "unit_cost",
			"discount_total", "fee_md", "fee_dc", "pass_flag", "conf_flag",
			"operator")

	// conf_flag starts unconfirmed; the receiving application flips it.
	for _, l := range v.Lines {
		q = q.Values(
			v.Number, l.LineNo, v.Center, v.DeptCode, v.VendorCode,
			v.OrderDate, v.DeliveryDate, l.ItemCode, l.Qty, l.UnitCost,
			l.DiscTotal, l.FeeMD, l.FeeDC, l.PassFlag, "0", v.Operator,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// InsertDiscount writes the discount-ledger rows referencing the parent
// purchase document number.
func (r *LedgerRepo) InsertDiscount(ctx context.Context, d voucher.DiscountVoucher) error {
	q := r.builder().
		Insert(discountTable).
		Columns("discount_no", "line_no", "purchase_no", "center",
			"item_code", "qty", "amount")

	for _, l := range d.Lines {
		q = q.Values(d.Number, l.LineNo, d.PurchaseNo, d.Center,
			l.ItemCode, l.Qty, l.Amount)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", discountTable, err)
	}
	return nil
}

// InsertBatchLog writes the audit row for one committed chunk. The created_at
// stamp comes from the database clock so it matches the ledger rows.
func (r *LedgerRepo) InsertBatchLog(ctx context.Context, e voucher.BatchLogEntry) error {
	sql, args, err := r.builder().
		Insert(batchLogTable).
		Columns("batch_id", "user_id", "purchase_no", "discount_no", "center", "created_at").
		Values(e.BatchID, e.UserID, e.PurchaseNo, e.DiscountNo, e.Center,
			squirrel.Expr("CURRENT_TIMESTAMP")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", batchLogTable, err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/toyohara-midori/dcin/internal/core/clock"
	"github.com/toyohara-midori/dcin/internal/ingest"
)

const stagingTable = "stg_delivery_rows"

// Bulk-check tags appended to err_msg. Distinct and bracketed so a row can
// carry several and the confirmation screen can render them inline.
const (
	tagUnknownStore    = " [unknown store]"
	tagNoCatalogEntry  = " [item missing: catalog]"
	tagNoPackEntry     = " [item missing: pack master]"
	tagNoPriceEntry    = " [item missing: price master]"
	tagStoreCodeSpace  = " [store code has space]"
	tagStorePrefix     = " [store prefix not allowed]"
	tagZeroQty         = " [order qty zero]"
	tagDeliveryPast    = " [delivery date in past]"
	tagDeliveryHorizon = " [delivery date beyond horizon]"
	tagOrderDatePast   = " [order date in past]"
	tagOrderDateToday  = " [order date must be today]"
	tagNonASCII        = " [non-ascii characters]"
)

// StagingConfig tunes the bulk business-rule checker.
type StagingConfig struct {
	// HorizonDays bounds how far in the future a delivery date may lie.
	HorizonDays int

	// DisallowedStorePrefix blocks a store-code prefix reserved for
	// work/test codes. Empty disables the rule.
	DisallowedStorePrefix string
}

// DefaultStagingConfig returns the production rule parameters.
func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		HorizonDays:           60,
		DisallowedStorePrefix: "W",
	}
}

// StagingRepo is the durable holding area for enriched batches and the
// set-based bulk checker that runs against it.
type StagingRepo struct {
	txm *TxManager
	clk clock.Clock
	cfg StagingConfig
}

// Interface compliance.
var (
	_ ingest.StagingStore = (*StagingRepo)(nil)
	_ ingest.BulkChecker  = (*StagingRepo)(nil)
)

// NewStagingRepo creates the staging repository.
func NewStagingRepo(txm *TxManager, clk clock.Clock, cfg StagingConfig) *StagingRepo {
	return &StagingRepo{txm: txm, clk: clk, cfg: cfg}
}

func (r *StagingRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

var stagedRowColumns = []string{
	"line_no", "center", "dept_code", "dept_name",
	"vendor_code", "vendor_name", "order_date", "delivery_date",
	"item_code", "jan", "item_name", "manufacturer",
	"loose_qty", "case_qty", "unit_cost", "unit_discount",
	"fee_md", "fee_dc", "cost_total", "discount_total",
	"pass_flag", "err_msg",
}

// Stage replaces any previous staging data owned by userID and inserts the
// batch. Delete-then-insert, never merge: a user has at most one active
// batch, last writer wins.
func (r *StagingRepo) Stage(ctx context.Context, batchID, userID string, rows []ingest.StagedRow) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := r.txm.GetQuerier(ctx)

		if _, err := querier.Exec(ctx,
			"DELETE FROM "+stagingTable+" WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("delete previous staging: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		q := r.builder().
			Insert(stagingTable).
			Columns(append([]string{"batch_id", "user_id"}, stagedRowColumns...)...)

		for _, row := range rows {
			q = q.Values(
				batchID, userID,
				row.LineNo, row.Center, row.DeptCode, row.DeptName,
				row.VendorCode, row.VendorName, row.OrderDate, row.DeliveryDate,
				row.ItemCode, row.JAN, row.ItemName, row.Manufacturer,
				row.LooseQty, row.CaseQty, row.UnitCost, row.UnitDiscount,
				row.FeeMD, row.FeeDC, row.CostTotal, row.DiscTotal,
				row.PassFlag, row.ErrMsg,
			)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert staged rows: %w", err)
		}
		return nil
	})
}

// Load returns all rows for a batch in original line-number order.
func (r *StagingRepo) Load(ctx context.Context, batchID string) ([]ingest.StagedRow, error) {
	q := r.builder().
		Select(stagedRowColumns...).
		From(stagingTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []ingest.StagedRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load staged rows: %w", err)
	}
	return rows, nil
}

// Discard deletes all rows for the batch.
func (r *StagingRepo) Discard(ctx context.Context, batchID string) error {
	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx,
		"DELETE FROM "+stagingTable+" WHERE batch_id = $1", batchID); err != nil {
		return fmt.Errorf("discard batch: %w", err)
	}
	return nil
}

// Check runs the second, set-based validation round directly against the
// staged rows. Master data may have changed between staging and
// confirmation, so every rule re-checks the database state, appending its
// tag to err_msg without discarding rows. Returns the batch-level error
// flag plus the full annotated row list in line order.
func (r *StagingRepo) Check(ctx context.Context, batchID string, mode ingest.Mode) (bool, []ingest.StagedRow, error) {
	today := truncateToDay(r.clk.Now(ctx))
	horizon := today.AddDate(0, 0, r.cfg.HorizonDays)

	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return r.runBulkRules(ctx, batchID, mode, today, horizon)
	})
	if err != nil {
		return false, nil, fmt.Errorf("bulk validation: %w", err)
	}

	rows, err := r.Load(ctx, batchID)
	if err != nil {
		return false, nil, err
	}

	// Non-ASCII guard applied at read time: full-width characters in code
	// fields break the downstream ledger interfaces.
	hasError := false
	for i := range rows {
		if containsNonASCII(rows[i].Center, rows[i].VendorCode, rows[i].ItemCode, rows[i].PassFlag) {
			rows[i].ErrMsg += tagNonASCII
		}
		if rows[i].HasError() {
			hasError = true
		}
	}
	return hasError, rows, nil
}

// bulkRule appends tag to err_msg for every row of the batch matching cond.
type bulkRule struct {
	tag  string
	cond string
	args []any
}

func (r *StagingRepo) runBulkRules(ctx context.Context, batchID string, mode ingest.Mode, today, horizon time.Time) error {
	rules := []bulkRule{
		{tagUnknownStore, "center NOT IN (SELECT store_code FROM ref_stores)", nil},
		{tagNoCatalogEntry, "item_code NOT IN (SELECT item_code FROM ref_items)", nil},
		{tagNoPackEntry, "item_code NOT IN (SELECT item_code FROM ref_item_packs)", nil},
		{tagNoPriceEntry, "item_code NOT IN (SELECT item_code FROM ref_item_prices)", nil},
		{tagStoreCodeSpace, "center LIKE '% %'", nil},
		{tagZeroQty, "loose_qty = 0", nil},
		{tagDeliveryPast, "delivery_date < $2", []any{today}},
		{tagDeliveryHorizon, "delivery_date > $2", []any{horizon}},
		{tagOrderDatePast, "order_date < $2", []any{today}},
	}

	if p := r.cfg.DisallowedStorePrefix; p != "" {
		rules = append(rules, bulkRule{tagStorePrefix, "center LIKE $2 || '%'", []any{p}})
	}

	// Same-day runs accept today's orders only.
	if mode == ingest.ModeSameDay {
		rules = append(rules, bulkRule{tagOrderDateToday, "order_date <> $2", []any{today}})
	}

	querier := r.txm.GetQuerier(ctx)

	// Reset annotations so re-running the check stays idempotent.
	if _, err := querier.Exec(ctx,
		"UPDATE "+stagingTable+" SET err_msg = '' WHERE batch_id = $1", batchID); err != nil {
		return fmt.Errorf("reset err_msg: %w", err)
	}

	for _, rule := range rules {
		sql := fmt.Sprintf(
			"UPDATE %s SET err_msg = err_msg || '%s' WHERE batch_id = $1 AND %s",
			stagingTable, rule.tag, rule.cond)
		args := append([]any{batchID}, rule.args...)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("rule %q: %w", rule.tag, err)
		}
	}
	return nil
}

func containsNonASCII(fields ...string) bool {
	for _, f := range fields {
		for _, c := range f {
			if c > 127 {
				return true
			}
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/toyohara-midori/dcin/internal/ingest"
)

// RefDataRepo serves read-only master-data lookups for enrichment. A missing
// record is (zero, false, nil), never an error.
type RefDataRepo struct {
	txm *TxManager
}

var _ ingest.RefDataGateway = (*RefDataRepo)(nil)

// NewRefDataRepo creates the master-data repository.
func NewRefDataRepo(txm *TxManager) *RefDataRepo {
	return &RefDataRepo{txm: txm}
}

func (r *RefDataRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// LookupItem joins the item catalog with the pack master. Items without a
// pack entry still resolve, with items_per_case reported as zero.
func (r *RefDataRepo) LookupItem(ctx context.Context, code string) (*ingest.ItemRecord, bool, error) {
	q := r.builder().
		Select("i.name", "i.spec", "i.manufacturer", "i.dept_code", "i.jan",
			"COALESCE(p.items_per_case, 0) AS items_per_case").
		From("ref_items i").
		LeftJoin("ref_item_packs p ON p.item_code = i.item_code").
		Where(squirrel.Eq{"i.item_code": code})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	var rec ingest.ItemRecord
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup item %q: %w", code, err)
	}
	return &rec, true, nil
}

// LookupVendor returns the vendor display name.
func (r *RefDataRepo) LookupVendor(ctx context.Context, code string) (string, bool, error) {
	return r.lookupName(ctx, "ref_vendors", "vendor_code", code)
}

// LookupDepartment returns the department display name.
func (r *RefDataRepo) LookupDepartment(ctx context.Context, code string) (string, bool, error) {
	return r.lookupName(ctx, "ref_departments", "dept_code", code)
}

// LookupStoreName returns the store display name.
func (r *RefDataRepo) LookupStoreName(ctx context.Context, code string) (string, bool, error) {
	return r.lookupName(ctx, "ref_stores", "store_code", code)
}

func (r *RefDataRepo) lookupName(ctx context.Context, table, keyCol, code string) (string, bool, error) {
	sql, args, err := r.builder().
		Select("name").
		From(table).
		Where(squirrel.Eq{keyCol: code}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var name string
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup %s %q: %w", table, code, err)
	}
	return name, true, nil
}

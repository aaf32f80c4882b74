package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/toyohara-midori/dcin/internal/ingest"
	"github.com/toyohara-midori/dcin/internal/voucher"
)

// ledgerUnion presents both center ledgers as a single relation. Columns are
// identical across the two tables.
const ledgerUnion = "(SELECT * FROM " + purchaseTableMoriya +
	" UNION ALL SELECT * FROM " + purchaseTableSayama + ")"

// listSortColumns whitelists the sortable columns of the search screen.
var listSortColumns = map[string]string{
	"voucher_no":    "v.voucher_no",
	"delivery_date": "v.delivery_date",
	"order_date":    "v.order_date",
	"center":        "v.center",
	"vendor_code":   "v.vendor_code",
	"created_at":    "v.created_at",
}

// SearchRepo serves the voucher list, detail and export flows.
type SearchRepo struct {
	txm *TxManager
}

var _ voucher.SearchRepository = (*SearchRepo)(nil)

// NewSearchRepo creates the voucher search repository.
func NewSearchRepo(txm *TxManager) *SearchRepo {
	return &SearchRepo{txm: txm}
}

func (r *SearchRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// List returns voucher rows matching the filter, master names joined in.
// With FirstLineOnly set it collapses to one row per voucher.
func (r *SearchRepo) List(ctx context.Context, f voucher.ListFilter) ([]voucher.ListRow, error) {
	sql, args, err := listQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []voucher.ListRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	for i := range rows {
		rows[i].CenterName = ingest.CenterName(rows[i].Center)
	}
	return rows, nil
}

// listQuery renders the list SELECT for a filter.
func listQuery(f voucher.ListFilter) (string, []any, error) {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"v.voucher_no", "v.line_no", "v.center", "v.dept_code",
			"COALESCE(d.name, '') AS dept_name",
			"v.vendor_code",
			"COALESCE(ven.name, '') AS vendor_name",
			"v.item_code",
			"COALESCE(i.name, '') AS item_name",
			"COALESCE(i.manufacturer, '') AS manufacturer",
			"v.order_date", "v.delivery_date", "v.qty", "v.unit_cost",
			"v.discount_total", "v.fee_md", "v.fee_dc", "v.pass_flag",
			"v.operator", "v.created_at",
		).
		From(ledgerUnion + " v").
		LeftJoin("ref_departments d ON d.dept_code = v.dept_code").
		LeftJoin("ref_vendors ven ON ven.vendor_code = v.vendor_code").
		LeftJoin("ref_items i ON i.item_code = v.item_code")

	if f.VoucherNo != "" {
		q = q.Where(squirrel.Eq{"v.voucher_no": f.VoucherNo})
	}
	if len(f.VoucherNos) > 0 {
		q = q.Where(squirrel.Eq{"v.voucher_no": f.VoucherNos})
	}
	if center := resolveCenter(f.Center); center != "" {
		q = q.Where(squirrel.Eq{"v.center": center})
	}
	if f.DeptCode != "" {
		q = q.Where(squirrel.Eq{"v.dept_code": f.DeptCode})
	}
	if f.VendorCode != "" {
		q = q.Where(squirrel.Eq{"v.vendor_code": f.VendorCode})
	}
	if f.DeliveryDate != nil {
		q = q.Where(squirrel.Eq{"v.delivery_date": *f.DeliveryDate})
	}
	// JV-ness is a property of the item's manufacturer name, not of the
	// vendor who delivered it.
	switch f.MakerType {
	case "jv":
		q = q.Where("i.manufacturer LIKE 'JV%'")
	case "regular":
		q = q.Where("COALESCE(i.manufacturer, '') NOT LIKE 'JV%'")
	}
	if f.FirstLineOnly {
		q = q.Where(squirrel.Eq{"v.line_no": 1})
	}

	order := "v.voucher_no, v.line_no"
	if col, ok := listSortColumns[strings.ToLower(f.SortBy)]; ok {
		dir := "ASC"
		if f.SortDesc {
			dir = "DESC"
		}
		order = fmt.Sprintf("%s %s, v.voucher_no, v.line_no", col, dir)
	}
	return q.OrderBy(order).ToSql()
}

// GetDetail returns one voucher with all lines and computed totals, or a nil
// detail when the number is unknown.
func (r *SearchRepo) GetDetail(ctx context.Context, voucherNo string) (*voucher.Detail, error) {
	q := r.builder().
		Select(
			"v.line_no", "v.item_code",
			"COALESCE(i.jan, '') AS jan",
			"COALESCE(i.name, '') AS item_name",
			"COALESCE(i.spec, '') AS spec",
			"COALESCE(i.manufacturer, '') AS manufacturer",
			"COALESCE(p.items_per_case, 0) AS items_per_case",
			"v.qty", "v.unit_cost",
			"v.qty * v.unit_cost AS row_total",
			"v.discount_total",
		).
		From(ledgerUnion + " v").
		LeftJoin("ref_items i ON i.item_code = v.item_code").
		LeftJoin("ref_item_packs p ON p.item_code = v.item_code").
		Where(squirrel.Eq{"v.voucher_no": voucherNo}).
		OrderBy("v.line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []voucher.DetailLine
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("voucher detail lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	head, err := r.detailHeader(ctx, voucherNo)
	if err != nil {
		return nil, err
	}

	head.Lines = lines
	for _, l := range lines {
		head.TotalCases += l.Qty
		head.TotalCost = head.TotalCost.Add(l.RowTotal)
	}
	return head, nil
}

func (r *SearchRepo) detailHeader(ctx context.Context, voucherNo string) (*voucher.Detail, error) {
	sql, args, err := r.builder().
		Select(
			"v.voucher_no", "v.center", "v.dept_code",
			"COALESCE(d.name, '') AS dept_name",
			"v.vendor_code",
			"COALESCE(ven.name, '') AS vendor_name",
			"v.delivery_date", "v.operator",
		).
		From(ledgerUnion+" v").
		LeftJoin("ref_departments d ON d.dept_code = v.dept_code").
		LeftJoin("ref_vendors ven ON ven.vendor_code = v.vendor_code").
		Where(squirrel.Eq{"v.voucher_no": voucherNo, "v.line_no": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var head struct {
		VoucherNo    string    `db:"voucher_no"`
		Center       string    `db:"center"`
		DeptCode     string    `db:"dept_code"`
		DeptName     string    `db:"dept_name"`
		VendorCode   string    `db:"vendor_code"`
		VendorName   string    `db:"vendor_name"`
		DeliveryDate time.Time `db:"delivery_date"`
		Operator     string    `db:"operator"`
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &head, sql, args...); err != nil {
		return nil, fmt.Errorf("voucher detail header: %w", err)
	}

	return &voucher.Detail{
		VoucherNo:    head.VoucherNo,
		Center:       head.Center,
		CenterName:   ingest.CenterName(head.Center),
		DeptCode:     head.DeptCode,
		DeptName:     head.DeptName,
		VendorCode:   head.VendorCode,
		VendorName:   head.VendorName,
		DeliveryDate: head.DeliveryDate,
		Operator:     head.Operator,
	}, nil
}

// FilterOptions returns the distinct codes present in the ledgers for the
// search screen's dropdowns.
func (r *SearchRepo) FilterOptions(ctx context.Context) (voucher.FilterOptions, error) {
	var opts voucher.FilterOptions

	queries := []struct {
		col  string
		dest *[]string
	}{
		{"center", &opts.Centers},
		{"dept_code", &opts.Depts},
		{"vendor_code", &opts.Vendors},
	}
	for _, sub := range queries {
		sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s v ORDER BY %s",
			sub.col, ledgerUnion, sub.col)
		if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), sub.dest, sql); err != nil {
			return voucher.FilterOptions{}, fmt.Errorf("filter options %s: %w", sub.col, err)
		}
	}
	return opts, nil
}

// resolveCenter accepts either a center code or its display name.
func resolveCenter(s string) string {
	if s == "" {
		return ""
	}
	for _, code := range []string{ingest.CenterMoriya, ingest.CenterSayama} {
		if s == code || s == ingest.CenterName(code) {
			return code
		}
	}
	return s
}

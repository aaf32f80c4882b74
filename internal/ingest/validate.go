package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/clock"
	"github.com/toyohara-midori/dcin/internal/core/types"
	"github.com/toyohara-midori/dcin/pkg/logger"
)

// deliveryDateFormats are the accepted literal date layouts.
var deliveryDateFormats = []string{"2006/01/02", "2006-01-02"}

// Validator turns raw rows into enriched StagedRows, joining reference data
// and computing derived totals. Errors are collected per row, never thrown:
// the user must see every problem in one pass.
type Validator struct {
	ref RefDataGateway
	clk clock.Clock
}

// NewValidator creates a row validator/enricher.
func NewValidator(ref RefDataGateway, clk clock.Clock) *Validator {
	return &Validator{ref: ref, clk: clk}
}

// EnrichRows validates and enriches every raw row.
//
// It returns the enriched rows for all clean lines plus the ordered list of
// human-readable errors, one or more per bad row, each prefixed with the
// 1-based line number. Callers must refuse to stage when errs is non-empty:
// partial batches are never staged.
func (v *Validator) EnrichRows(ctx context.Context, raw []RawRow) ([]StagedRow, []string) {
	orderDate := truncateToDay(v.clk.Now(ctx))

	rows := make([]StagedRow, 0, len(raw))
	var errs []string

	for _, rr := range raw {
		row, rowErrs := v.enrichRow(ctx, rr, orderDate)
		if len(rowErrs) == 0 {
			rows = append(rows, row)
			continue
		}
		for _, e := range rowErrs {
			errs = append(errs, fmt.Sprintf("line %d: %s", rr.LineNo, e))
		}
	}
	return rows, errs
}

func (v *Validator) enrichRow(ctx context.Context, rr RawRow, orderDate time.Time) (StagedRow, []string) {
	var errs []string

	row := StagedRow{
		LineNo:     rr.LineNo,
		Center:     rr.Center,
		VendorCode: rr.Vendor,
		ItemCode:   rr.ItemCode,
		PassFlag:   rr.PassFlag,
		OrderDate:  orderDate,
	}

	if !IsKnownCenter(rr.Center) {
		errs = append(errs, fmt.Sprintf("unknown center code %q", rr.Center))
	}

	if d, ok := parseDeliveryDate(rr.DeliveryDate); ok {
		row.DeliveryDate = d
	} else {
		errs = append(errs, fmt.Sprintf("invalid delivery date %q", rr.DeliveryDate))
	}

	row.LooseQty = parseQty(rr.LooseQty, "loose quantity", &errs)
	row.UnitCost = parseAmount(rr.UnitCost, "unit cost", &errs)
	row.UnitDiscount = parseAmount(rr.UnitDiscount, "unit discount", &errs)

	// Fee columns default to zero; the upload template leaves them blank for
	// fee-exempt vendors.
	row.FeeMD, _ = types.NewMoneyFromString(zeroIfEmpty(rr.FeeMD))
	row.FeeDC, _ = types.NewMoneyFromString(zeroIfEmpty(rr.FeeDC))

	item, found := v.lookupItem(ctx, rr.ItemCode)
	if !found {
		errs = append(errs, fmt.Sprintf("item %q not in item master", rr.ItemCode))
	} else {
		row.ItemName = item.Name
		row.Manufacturer = item.Manufacturer
		row.JAN = item.JAN
		row.DeptCode = item.DeptCode

		if item.ItemsPerCase > 0 {
			if row.LooseQty%item.ItemsPerCase != 0 {
				errs = append(errs, fmt.Sprintf(
					"loose quantity %d is not a whole number of cases (items per case %d)",
					row.LooseQty, item.ItemsPerCase))
			} else {
				row.CaseQty = row.LooseQty / item.ItemsPerCase
			}
		}
	}

	if name, ok := v.lookupVendor(ctx, rr.Vendor); ok {
		row.VendorName = name
	} else {
		errs = append(errs, fmt.Sprintf("vendor %q not in vendor master", rr.Vendor))
	}

	// Missing department degrades to an empty name, not an error.
	if row.DeptCode != "" {
		if name, ok := v.lookupDepartment(ctx, row.DeptCode); ok {
			row.DeptName = name
		}
	}

	qty := types.NewMoney(float64(row.LooseQty))
	row.CostTotal = row.UnitCost.Mul(qty)
	row.DiscTotal = row.UnitDiscount.Mul(qty)

	return row, errs
}

// lookup helpers treat gateway failures as "not found" per the error
// contract; downstream validation turns absence into row errors.

func (v *Validator) lookupItem(ctx context.Context, code string) (*ItemRecord, bool) {
	item, found, err := v.ref.LookupItem(ctx, code)
	if err != nil {
		logger.Warn(ctx, "item lookup failed", "item_code", code, "error", err)
		return nil, false
	}
	return item, found
}

func (v *Validator) lookupVendor(ctx context.Context, code string) (string, bool) {
	name, found, err := v.ref.LookupVendor(ctx, code)
	if err != nil {
		logger.Warn(ctx, "vendor lookup failed", "vendor_code", code, "error", err)
		return "", false
	}
	return name, found
}

func (v *Validator) lookupDepartment(ctx context.Context, code string) (string, bool) {
	name, found, err := v.ref.LookupDepartment(ctx, code)
	if err != nil {
		logger.Warn(ctx, "department lookup failed", "dept_code", code, "error", err)
		return "", false
	}
	return name, found
}

func parseDeliveryDate(s string) (time.Time, bool) {
	for _, layout := range deliveryDateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseQty parses an integer quantity; a bad value records an error and
// leaves the quantity zeroed so the row survives for display.
func parseQty(s, field string, errs *[]string) int64 {
	if s == "" {
		*errs = append(*errs, fmt.Sprintf("%s is empty", field))
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s %q is not a number", field, s))
		return 0
	}
	return n
}

// parseAmount parses a monetary value with the same zero-and-record
// behavior as parseQty.
func parseAmount(s, field string, errs *[]string) types.Money {
	if s == "" {
		return types.Zero()
	}
	m, err := types.NewMoneyFromString(s)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s %q is not a number", field, s))
		return types.Zero()
	}
	return m
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

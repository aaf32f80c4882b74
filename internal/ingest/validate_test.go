package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/clock"
	"github.com/toyohara-midori/dcin/internal/core/types"
)

type fakeRefData struct {
	items   map[string]ItemRecord
	vendors map[string]string
	depts   map[string]string
	stores  map[string]string
}

func (f *fakeRefData) LookupItem(ctx context.Context, code string) (*ItemRecord, bool, error) {
	if it, ok := f.items[code]; ok {
		return &it, true, nil
	}
	return nil, false, nil
}

func (f *fakeRefData) LookupVendor(ctx context.Context, code string) (string, bool, error) {
	name, ok := f.vendors[code]
	return name, ok, nil
}

func (f *fakeRefData) LookupDepartment(ctx context.Context, code string) (string, bool, error) {
	name, ok := f.depts[code]
	return name, ok, nil
}

func (f *fakeRefData) LookupStoreName(ctx context.Context, code string) (string, bool, error) {
	name, ok := f.stores[code]
	return name, ok, nil
}

func testValidator() *Validator {
	ref := &fakeRefData{
		items: map[string]ItemRecord{
			"100001": {Name: "ビール350ml", Manufacturer: "メーカーA", JAN: "4901234567890", DeptCode: "10", ItemsPerCase: 24},
			"100002": {Name: "ワイン750ml", Manufacturer: "メーカーB", JAN: "4909876543210", DeptCode: "20", ItemsPerCase: 0},
		},
		vendors: map[string]string{"1234": "酒販卸A"},
		depts:   map[string]string{"10": "ビール", "20": "ワイン"},
	}
	now := time.Date(2026, 9, 1, 9, 30, 0, 0, time.Local)
	return NewValidator(ref, clock.Fixed{T: now})
}

func rawLine(lineNo int) RawRow {
	return RawRow{
		LineNo:       lineNo,
		Center:       "D03",
		DeliveryDate: "2026/09/05",
		Vendor:       "1234",
		FeeMD:        "",
		FeeDC:        "2.5",
		ItemCode:     "100001",
		LooseQty:     "48",
		UnitCost:     "105.50",
		PassFlag:     "1",
		UnitDiscount: "3",
	}
}

func TestEnrichRows_CleanRow(t *testing.T) {
	v := testValidator()
	rows, errs := v.EnrichRows(context.Background(), []RawRow{rawLine(2)})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.ItemName != "ビール350ml" || r.VendorName != "酒販卸A" || r.DeptName != "ビール" {
		t.Errorf("enrichment wrong: %+v", r)
	}
	if r.DeptCode != "10" || r.JAN != "4901234567890" {
		t.Errorf("item master fields wrong: %+v", r)
	}
	if r.CaseQty != 2 { // 48 loose / 24 per case
		t.Errorf("CaseQty = %d, want 2", r.CaseQty)
	}
	if !r.CostTotal.Equal(types.MustMoney("5064")) { // 105.50 * 48
		t.Errorf("CostTotal = %s, want 5064", r.CostTotal)
	}
	if !r.DiscTotal.Equal(types.MustMoney("144")) { // 3 * 48
		t.Errorf("DiscTotal = %s, want 144", r.DiscTotal)
	}
	if !r.FeeMD.IsZero() || !r.FeeDC.Equal(types.MustMoney("2.5")) {
		t.Errorf("fees wrong: md=%s dc=%s", r.FeeMD, r.FeeDC)
	}
	if !r.OrderDate.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("OrderDate = %s, want today truncated", r.OrderDate)
	}
}

func TestEnrichRows_CaseDivisibility(t *testing.T) {
	v := testValidator()
	rr := rawLine(3)
	rr.LooseQty = "50" // 50 % 24 != 0

	_, errs := v.EnrichRows(context.Background(), []RawRow{rr})
	if len(errs) != 1 {
		t.Fatalf("want 1 error, got %v", errs)
	}
	if !strings.Contains(errs[0], "line 3:") || !strings.Contains(errs[0], "whole number of cases") {
		t.Errorf("error message wrong: %q", errs[0])
	}
}

func TestEnrichRows_NoPackEntry(t *testing.T) {
	v := testValidator()
	rr := rawLine(2)
	rr.ItemCode = "100002" // items per case unknown

	rows, errs := v.EnrichRows(context.Background(), []RawRow{rr})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	// Unknown pack size is not a row error at this stage; case qty stays 0
	// and the bulk check flags the missing pack master.
	if rows[0].CaseQty != 0 {
		t.Errorf("CaseQty = %d, want 0", rows[0].CaseQty)
	}
}

func TestEnrichRows_CollectsAllErrors(t *testing.T) {
	v := testValidator()
	rr := RawRow{
		LineNo:       5,
		Center:       "D99",
		DeliveryDate: "next tuesday",
		Vendor:       "0000",
		ItemCode:     "999999",
		LooseQty:     "abc",
		UnitCost:     "x",
	}

	rows, errs := v.EnrichRows(context.Background(), []RawRow{rr})
	if len(rows) != 0 {
		t.Errorf("bad row must not survive: %+v", rows)
	}
	if len(errs) < 5 {
		t.Fatalf("want all problems reported, got %v", errs)
	}
	for _, e := range errs {
		if !strings.HasPrefix(e, "line 5: ") {
			t.Errorf("missing line prefix: %q", e)
		}
	}
}

func TestEnrichRows_MixedBatchKeepsOrder(t *testing.T) {
	v := testValidator()
	bad := rawLine(2)
	bad.Vendor = "0000"
	good := rawLine(3)

	rows, errs := v.EnrichRows(context.Background(), []RawRow{bad, good})
	if len(rows) != 1 || rows[0].LineNo != 3 {
		t.Errorf("good row lost: %+v", rows)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "line 2:") {
		t.Errorf("bad row error wrong: %v", errs)
	}
}

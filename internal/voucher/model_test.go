package voucher

import (
	"testing"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/types"
	"github.com/toyohara-midori/dcin/internal/ingest"
)

func testChunk() ingest.Chunk {
	delivery := time.Date(2026, 9, 5, 0, 0, 0, 0, time.Local)
	order := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)
	return ingest.Chunk{
		Key: ingest.GroupKey{
			VendorCode:   "1234",
			DeliveryDate: delivery,
			Center:       ingest.CenterMoriya,
			DeptCode:     "10",
		},
		Rows: []ingest.StagedRow{
			{
				ItemCode:  "100001",
				CaseQty:   2,
				OrderDate: order,
				UnitCost:  types.MustMoney("105.50"),
				DiscTotal: types.MustMoney("144"),
				FeeMD:     types.MustMoney("1.5"),
				PassFlag:  "1",
			},
			{
				ItemCode:  "100002",
				CaseQty:   1,
				OrderDate: order,
				UnitCost:  types.MustMoney("200"),
				DiscTotal: types.Zero(),
				PassFlag:  "2",
			},
		},
	}
}

func TestFromChunk(t *testing.T) {
	c := testChunk()
	v := FromChunk("000123", "user1", c)

	if v.Number != "000123" || v.Operator != "user1" {
		t.Errorf("header wrong: %+v", v)
	}
	if v.Center != ingest.CenterMoriya || v.DeptCode != "10" || v.VendorCode != "1234" {
		t.Errorf("key fields wrong: %+v", v)
	}
	if !v.DeliveryDate.Equal(c.Key.DeliveryDate) {
		t.Errorf("DeliveryDate = %s", v.DeliveryDate)
	}
	if !v.OrderDate.Equal(c.Rows[0].OrderDate) {
		t.Errorf("OrderDate = %s, want first row's", v.OrderDate)
	}

	if len(v.Lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(v.Lines))
	}
	// Line numbers are 1-based and follow chunk order.
	if v.Lines[0].LineNo != 1 || v.Lines[1].LineNo != 2 {
		t.Errorf("line numbers wrong: %+v", v.Lines)
	}
	if v.Lines[0].ItemCode != "100001" || v.Lines[0].Qty != 2 {
		t.Errorf("line 1 wrong: %+v", v.Lines[0])
	}
	if !v.Lines[0].UnitCost.Equal(types.MustMoney("105.50")) {
		t.Errorf("line 1 cost wrong: %s", v.Lines[0].UnitCost)
	}
}

func TestDiscountLinesFor(t *testing.T) {
	lines := DiscountLinesFor(testChunk())

	// Only the discount-bearing row survives, renumbered from 1.
	if len(lines) != 1 {
		t.Fatalf("want 1 discount line, got %d", len(lines))
	}
	if lines[0].LineNo != 1 || lines[0].ItemCode != "100001" {
		t.Errorf("discount line wrong: %+v", lines[0])
	}
	if !lines[0].Amount.Equal(types.MustMoney("144")) {
		t.Errorf("amount = %s, want 144", lines[0].Amount)
	}
}

func TestDiscountLinesFor_NoDiscounts(t *testing.T) {
	c := testChunk()
	c.Rows[0].DiscTotal = types.Zero()

	if lines := DiscountLinesFor(c); len(lines) != 0 {
		t.Errorf("want no discount lines, got %+v", lines)
	}
}

package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/toyohara-midori/dcin/internal/voucher"
)

func TestListQuery_MakerTypeFiltersOnManufacturer(t *testing.T) {
	sql, _, err := listQuery(voucher.ListFilter{MakerType: "jv"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "i.manufacturer LIKE 'JV%'") {
		t.Errorf("jv filter missing manufacturer predicate:\n%s", sql)
	}

	sql, _, err = listQuery(voucher.ListFilter{MakerType: "regular"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "COALESCE(i.manufacturer, '') NOT LIKE 'JV%'") {
		t.Errorf("regular filter missing manufacturer predicate:\n%s", sql)
	}
}

func TestListQuery_NoMakerTypeLeavesManufacturerUnfiltered(t *testing.T) {
	sql, _, err := listQuery(voucher.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sql, "LIKE 'JV%'") {
		t.Errorf("unexpected maker predicate in unfiltered query:\n%s", sql)
	}
}

func TestListQuery_Filters(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	sql, args, err := listQuery(voucher.ListFilter{
		Center:        "D03",
		VendorCode:    "1234",
		DeliveryDate:  &day,
		FirstLineOnly: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"v.center =", "v.vendor_code =", "v.delivery_date =", "v.line_no ="} {
		if !strings.Contains(sql, want) {
			t.Errorf("query missing %q:\n%s", want, sql)
		}
	}
	if len(args) != 4 {
		t.Errorf("got %d args, want 4", len(args))
	}
}

func TestListQuery_SortWhitelist(t *testing.T) {
	sql, _, err := listQuery(voucher.ListFilter{SortBy: "delivery_date", SortDesc: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "ORDER BY v.delivery_date DESC") {
		t.Errorf("sort column not applied:\n%s", sql)
	}

	// Unknown sort keys fall back to the stable default order.
	sql, _, err = listQuery(voucher.ListFilter{SortBy: "qty; DROP TABLE ref_items"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "ORDER BY v.voucher_no, v.line_no") {
		t.Errorf("unknown sort key not ignored:\n%s", sql)
	}
}

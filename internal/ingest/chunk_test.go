package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/types"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(vendor, date, center, dept, item string) StagedRow {
	return StagedRow{
		VendorCode:   vendor,
		DeliveryDate: day(date),
		Center:       center,
		DeptCode:     dept,
		ItemCode:     item,
	}
}

func TestBuildChunks_GroupsByKeyInFirstSeenOrder(t *testing.T) {
	rows := []StagedRow{
		row("1234", "2026-09-01", "D03", "10", "B"),
		row("5678", "2026-09-01", "D03", "10", "A"),
		row("1234", "2026-09-01", "D03", "10", "A"),
		row("1234", "2026-09-02", "D03", "10", "C"),
	}

	chunks := BuildChunks(rows)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}

	// First-seen group order: vendor 1234/09-01, then 5678, then 1234/09-02.
	if chunks[0].Key.VendorCode != "1234" || !chunks[0].Key.DeliveryDate.Equal(day("2026-09-01")) {
		t.Errorf("chunk 0 key wrong: %+v", chunks[0].Key)
	}
	if chunks[1].Key.VendorCode != "5678" {
		t.Errorf("chunk 1 key wrong: %+v", chunks[1].Key)
	}
	if !chunks[2].Key.DeliveryDate.Equal(day("2026-09-02")) {
		t.Errorf("chunk 2 key wrong: %+v", chunks[2].Key)
	}

	// Within a group rows sort by item code ascending.
	if chunks[0].Rows[0].ItemCode != "A" || chunks[0].Rows[1].ItemCode != "B" {
		t.Errorf("chunk 0 not sorted by item code: %+v", chunks[0].Rows)
	}
}

func TestBuildChunks_SplitsAtMaxLines(t *testing.T) {
	var rows []StagedRow
	for i := 0; i < 14; i++ {
		rows = append(rows, row("1234", "2026-09-01", "D03", "10", fmt.Sprintf("%03d", i)))
	}

	chunks := BuildChunks(rows)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks for 14 rows, got %d", len(chunks))
	}
	if len(chunks[0].Rows) != MaxChunkLines || len(chunks[1].Rows) != MaxChunkLines {
		t.Errorf("full chunks wrong sizes: %d, %d", len(chunks[0].Rows), len(chunks[1].Rows))
	}
	if len(chunks[2].Rows) != 2 {
		t.Errorf("tail chunk size wrong: %d", len(chunks[2].Rows))
	}

	// Item-code order must be continuous across the chunk boundary.
	last := chunks[0].Rows[MaxChunkLines-1].ItemCode
	first := chunks[1].Rows[0].ItemCode
	if last >= first {
		t.Errorf("order broken across chunks: %q then %q", last, first)
	}
}

func TestBuildChunks_Empty(t *testing.T) {
	if chunks := BuildChunks(nil); len(chunks) != 0 {
		t.Errorf("want no chunks, got %d", len(chunks))
	}
}

func TestChunkDiscountSum(t *testing.T) {
	c := Chunk{Rows: []StagedRow{
		{DiscTotal: types.MustMoney("10.50")},
		{DiscTotal: types.Zero()},
		{DiscTotal: types.MustMoney("4.50")},
	}}
	if got := c.DiscountSum(); !got.Equal(types.MustMoney("15")) {
		t.Errorf("DiscountSum = %s, want 15", got)
	}
}

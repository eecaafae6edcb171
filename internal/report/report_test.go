package report

import (
	"testing"
	"time"

	"kedaipos/backend/internal/domain"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func sale(t time.Time, total int64, lines ...domain.CartLine) domain.SaleRecord {
	return domain.SaleRecord{
		ID:          "sale-" + t.Format("150405"),
		CreatedAt:   t,
		TimestampMs: t.UnixMilli(),
		Total:       total,
		Lines:       lines,
	}
}

func TestDayKeyUsesOutletTimezone(t *testing.T) {
	jakarta := mustLoc(t, "Asia/Jakarta")
	// 2026-08-27 18:30 UTC is already 2026-08-28 01:30 in Jakarta.
	utcEvening := time.Date(2026, 8, 27, 18, 30, 0, 0, time.UTC)
	if got := DayKey(utcEvening, jakarta); got != "2026-08-28" {
		t.Fatalf("day key = %q, want 2026-08-28", got)
	}
	if got := DayKey(utcEvening, time.UTC); got != "2026-08-27" {
		t.Fatalf("day key = %q, want 2026-08-27", got)
	}
}

func TestTodaySummaryFiltersToDayBucket(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, loc)

	records := []domain.SaleRecord{
		sale(now.Add(-26*time.Hour), 99999, domain.CartLine{DisplayName: "Old", Quantity: 9}),
		sale(now.Add(-2*time.Hour), 30000, domain.CartLine{DisplayName: "Matcha OG", Quantity: 2}),
		sale(now.Add(-1*time.Hour), 20000, domain.CartLine{DisplayName: "Thai Tea", Quantity: 1}),
	}

	summary := TodaySummary(records, now, loc)
	if summary.DayKey != "2026-08-28" {
		t.Fatalf("day key = %q", summary.DayKey)
	}
	if summary.TransactionCount != 2 {
		t.Fatalf("count = %d, want 2", summary.TransactionCount)
	}
	if summary.Revenue != 50000 {
		t.Fatalf("revenue = %d, want 50000", summary.Revenue)
	}
	if summary.AverageOrderValue != 25000 {
		t.Fatalf("avg = %d, want 25000", summary.AverageOrderValue)
	}
	if len(summary.TopItems) != 2 || summary.TopItems[0].Name != "Matcha OG" {
		t.Fatalf("top items = %+v", summary.TopItems)
	}
}

func TestTodaySummaryEmptyDay(t *testing.T) {
	summary := TodaySummary(nil, time.Now(), time.UTC)
	if summary.Revenue != 0 || summary.TransactionCount != 0 || summary.AverageOrderValue != 0 {
		t.Fatalf("empty day summary = %+v", summary)
	}
	if len(summary.TopItems) != 0 {
		t.Fatalf("top items = %+v, want none", summary.TopItems)
	}
}

func TestTodaySummaryTopItemTieBreak(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, loc)
	records := []domain.SaleRecord{
		sale(now.Add(-3*time.Hour), 1000, domain.CartLine{DisplayName: "First", Quantity: 2}),
		sale(now.Add(-2*time.Hour), 1000, domain.CartLine{DisplayName: "Second", Quantity: 2}),
	}

	summary := TodaySummary(records, now, loc)
	if summary.TopItems[0].Name != "First" {
		t.Fatalf("tie must go to the earlier item, got %+v", summary.TopItems)
	}
}

func TestTrailingSeriesZeroFilledOldestFirst(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, loc)
	records := []domain.SaleRecord{
		sale(now.Add(-48*time.Hour), 10000),
		sale(now.Add(-1*time.Hour), 25000),
	}

	series := TrailingSeries(records, now, loc, 7)
	if len(series) != 7 {
		t.Fatalf("len = %d, want 7", len(series))
	}
	if series[0].DayKey != "2026-08-22" || series[6].DayKey != "2026-08-28" {
		t.Fatalf("range = %q..%q", series[0].DayKey, series[6].DayKey)
	}
	if series[6].Revenue != 25000 || series[6].TransactionCount != 1 {
		t.Fatalf("today point = %+v", series[6])
	}
	if series[4].Revenue != 10000 {
		t.Fatalf("two days ago point = %+v", series[4])
	}
	for _, i := range []int{0, 1, 2, 3, 5} {
		if series[i].Revenue != 0 || series[i].TransactionCount != 0 {
			t.Fatalf("day %s should be zero-filled: %+v", series[i].DayKey, series[i])
		}
	}
}

func TestTrailingSeriesDefaultsToFourteenDays(t *testing.T) {
	series := TrailingSeries(nil, time.Now(), time.UTC, 0)
	if len(series) != 14 {
		t.Fatalf("len = %d, want 14", len(series))
	}
}

package report

import (
	"math"
	"sort"
	"time"

	"kedaipos/backend/internal/domain"
)

// Day bucketing is always done in the outlet's configured timezone, never in
// whatever zone the device happens to run in. Two terminals in different zones
// must agree on what "today" means.

const dayKeyFormat = "2006-01-02"

func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyFormat)
}

// TodaySummary aggregates the records that fall into now's day bucket.
// Average order value rounds to the nearest unit and is 0 for an empty day.
// Top items are ranked by quantity, ties broken by first encounter walking the
// day's records oldest-first.
func TodaySummary(records []domain.SaleRecord, now time.Time, loc *time.Location) domain.TodaySummary {
	key := DayKey(now, loc)

	today := make([]domain.SaleRecord, 0, len(records))
	for _, r := range records {
		if DayKey(r.CreatedAt, loc) == key {
			today = append(today, r)
		}
	}
	sort.SliceStable(today, func(i, j int) bool {
		return today[i].TimestampMs < today[j].TimestampMs
	})

	var revenue int64
	type itemAgg struct {
		name  string
		qty   int
		order int
	}
	byName := make(map[string]*itemAgg)
	seen := 0
	for _, r := range today {
		revenue += r.Total
		for _, line := range r.Lines {
			agg, ok := byName[line.DisplayName]
			if !ok {
				agg = &itemAgg{name: line.DisplayName, order: seen}
				seen++
				byName[line.DisplayName] = agg
			}
			agg.qty += line.Quantity
		}
	}

	items := make([]*itemAgg, 0, len(byName))
	for _, agg := range byName {
		items = append(items, agg)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].qty == items[j].qty {
			return items[i].order < items[j].order
		}
		return items[i].qty > items[j].qty
	})

	top := make([]domain.TopItem, 0, 3)
	for _, agg := range items {
		if len(top) == 3 {
			break
		}
		top = append(top, domain.TopItem{Name: agg.name, TotalQty: agg.qty})
	}

	avg := int64(0)
	if len(today) > 0 {
		avg = int64(math.Round(float64(revenue) / float64(len(today))))
	}

	return domain.TodaySummary{
		DayKey:            key,
		Revenue:           revenue,
		TransactionCount:  len(today),
		AverageOrderValue: avg,
		TopItems:          top,
		GeneratedAt:       now.In(loc),
	}
}

// TrailingSeries returns one point per calendar day for the last days days
// including today, oldest first, zero-filled where nothing sold.
func TrailingSeries(records []domain.SaleRecord, now time.Time, loc *time.Location, days int) []domain.DaySeriesPoint {
	if days < 1 {
		days = 14
	}

	byDay := make(map[string]*domain.DaySeriesPoint, days)
	series := make([]domain.DaySeriesPoint, 0, days)
	today := now.In(loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(dayKeyFormat)
		series = append(series, domain.DaySeriesPoint{DayKey: key})
		byDay[key] = &series[len(series)-1]
	}

	for _, r := range records {
		point, ok := byDay[DayKey(r.CreatedAt, loc)]
		if !ok {
			continue
		}
		point.Revenue += r.Total
		point.TransactionCount++
	}

	return series
}

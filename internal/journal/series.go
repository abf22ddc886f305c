package journal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BalancePoint is the cumulative balance per commodity at the end of one
// day. Every point carries every commodity of the series.
type BalancePoint struct {
	Date     time.Time
	Balances map[string]decimal.Decimal
}

// DailyBalances walks the transactions day by day from the earliest to the
// latest date and accumulates posting amounts per commodity, producing one
// point per calendar day. The commodity list is sorted and shared by all
// points.
func DailyBalances(txns []Transaction) ([]BalancePoint, []string) {
	if len(txns) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	byDay := make(map[time.Time][]Posting)
	var minDay, maxDay time.Time
	for i := range txns {
		day := dayOf(txns[i].Date)
		if minDay.IsZero() || day.Before(minDay) {
			minDay = day
		}
		if maxDay.IsZero() || day.After(maxDay) {
			maxDay = day
		}
		byDay[day] = append(byDay[day], txns[i].Postings...)
		for _, p := range txns[i].Postings {
			seen[p.Amount.Commodity] = struct{}{}
		}
	}

	commodities := make([]string, 0, len(seen))
	for commodity := range seen {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)

	running := make(map[string]decimal.Decimal, len(commodities))
	var points []BalancePoint
	for day := minDay; !day.After(maxDay); day = day.AddDate(0, 0, 1) {
		for _, p := range byDay[day] {
			running[p.Amount.Commodity] = running[p.Amount.Commodity].Add(p.Amount.Quantity)
		}
		balances := make(map[string]decimal.Decimal, len(commodities))
		for _, commodity := range commodities {
			balances[commodity] = running[commodity]
		}
		points = append(points, BalancePoint{Date: day, Balances: balances})
	}
	return points, commodities
}

func dayOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

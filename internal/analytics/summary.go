package analytics

import (
	"sort"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

type DaySummary struct {
	Date            string  `json:"date"`
	EmissionKg      float64 `json:"emissionKg"`
	WasteKg         float64 `json:"wasteKg"`
	SalesEmissionKg float64 `json:"salesEmissionKg"`
	Revenue         float64 `json:"revenue"`
}

type TraderSummary struct {
	TraderID string       `json:"traderId"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	Days     []DaySummary `json:"days"`
	Totals   DaySummary   `json:"totals"`
}

type dayTotals struct {
	emission      decimal.Decimal
	waste         decimal.Decimal
	salesEmission decimal.Decimal
	revenue       decimal.Decimal
}

func (d dayTotals) summary(date string) DaySummary {
	return DaySummary{
		Date:            date,
		EmissionKg:      d.emission.InexactFloat64(),
		WasteKg:         d.waste.InexactFloat64(),
		SalesEmissionKg: d.salesEmission.InexactFloat64(),
		Revenue:         d.revenue.Round(2).InexactFloat64(),
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Summarize joins the three ledgers by UTC calendar day. Days with no activity
// are left out and the remaining days are sorted ascending.
func Summarize(traderID string, r Range, emissions []*domain.EmissionLog, waste []*domain.WasteLog, sales []*domain.SaleRecord) TraderSummary {
	days := make(map[string]*dayTotals)
	get := func(t time.Time) *dayTotals {
		key := dayKey(t)
		d, ok := days[key]
		if !ok {
			d = &dayTotals{}
			days[key] = d
		}
		return d
	}

	for _, e := range emissions {
		d := get(e.Date)
		d.emission = d.emission.Add(decimal.NewFromFloat(domain.NonNegative(e.CarbonEmission)))
	}
	for _, w := range waste {
		d := get(w.Date)
		d.waste = d.waste.Add(decimal.NewFromFloat(domain.NonNegative(w.Quantity)))
	}
	for _, s := range sales {
		d := get(s.Date)
		d.salesEmission = d.salesEmission.Add(decimal.NewFromFloat(domain.NonNegative(s.CarbonEmission)))
		d.revenue = d.revenue.Add(decimal.NewFromFloat(domain.NonNegative(s.Revenue)))
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total dayTotals
	out := make([]DaySummary, 0, len(keys))
	for _, k := range keys {
		d := days[k]
		out = append(out, d.summary(k))
		total.emission = total.emission.Add(d.emission)
		total.waste = total.waste.Add(d.waste)
		total.salesEmission = total.salesEmission.Add(d.salesEmission)
		total.revenue = total.revenue.Add(d.revenue)
	}

	return TraderSummary{
		TraderID: traderID,
		From:     r.From,
		To:       r.To,
		Days:     out,
		Totals:   total.summary(""),
	}
}

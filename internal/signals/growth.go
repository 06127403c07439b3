package signals

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/eodhd-mcp/internal/marketdata"
)

// Growth metric names.
const (
	QuarterlyRevenueGrowthYOY  = "quarterly_revenue_growth_yoy"
	QuarterlyEarningsGrowthYOY = "quarterly_earnings_growth_yoy"
	RevenueGrowthYOY           = "revenue_growth_yoy"
	NetIncomeGrowthYOY         = "net_income_growth_yoy"
)

// GrowthRates maps a metric name to its value. A metric the upstream never
// reported is absent; one it reported as null (or unparseable) is present as nil.
type GrowthRates map[string]*float64

// Names returns the metric names in sorted order.
func (g GrowthRates) Names() []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var highlightGrowth = map[string]string{
	"QuarterlyRevenueGrowthYOY":  QuarterlyRevenueGrowthYOY,
	"QuarterlyEarningsGrowthYOY": QuarterlyEarningsGrowthYOY,
}

// ExtractGrowthRates reads the quarterly growth figures from Highlights and derives
// annual revenue and net income growth from the two latest yearly income statements.
func ExtractGrowthRates(f marketdata.Fundamentals) GrowthRates {
	rates := GrowthRates{}

	for field, name := range highlightGrowth {
		if v, ok := f.Field("Highlights", field); ok {
			rates[name] = toFloat(v)
		}
	}

	latest, previous, ok := latestYearlyStatements(f)
	if !ok {
		return rates
	}
	for field, name := range map[string]string{"totalRevenue": RevenueGrowthYOY, "netIncome": NetIncomeGrowthYOY} {
		cur, okCur := latest[field]
		prev, okPrev := previous[field]
		if !okCur || !okPrev {
			continue
		}
		rates[name] = growth(toFloat(prev), toFloat(cur))
	}

	return rates
}

func growth(prev, cur *float64) *float64 {
	if prev == nil || cur == nil {
		return nil
	}
	g, ok := pctChange(*prev, *cur)
	if !ok {
		return nil
	}
	g = round(g, 4)
	return &g
}

// latestYearlyStatements returns the two most recent entries of
// Financials.Income_Statement.yearly, keyed by statement date.
func latestYearlyStatements(f marketdata.Fundamentals) (latest, previous map[string]any, ok bool) {
	income, found := f.Field("Financials", "Income_Statement")
	if !found {
		return nil, nil, false
	}
	incomeMap, isMap := income.(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	yearly, isMap := incomeMap["yearly"].(map[string]any)
	if !isMap || len(yearly) < 2 {
		return nil, nil, false
	}

	dates := make([]string, 0, len(yearly))
	for k := range yearly {
		dates = append(dates, k)
	}
	// Statement keys are YYYY-MM-DD so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	latest, okLatest := yearly[dates[0]].(map[string]any)
	previous, okPrevious := yearly[dates[1]].(map[string]any)
	if !okLatest || !okPrevious {
		return nil, nil, false
	}
	return latest, previous, true
}

// toFloat converts a fundamentals value to a float, or nil when it is not numeric.
func toFloat(v any) *float64 {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &f
}

package signals

import (
	"time"

	"github.com/ternarybob/eodhd-mcp/internal/marketdata"
)

// Trend labels.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendMixed            = "mixed"
	TrendInsufficientData = "insufficient_data"
)

// DefaultTrendYears is the lookback used when the caller gives none.
const DefaultTrendYears = 2

// TrendPoint is one data point in a trend series.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// EarningsTrend classifies the EPS and revenue series of one symbol.
type EarningsTrend struct {
	Symbol       string       `json:"symbol"`
	Years        int          `json:"years"`
	EPSTrend     string       `json:"eps_trend"`
	RevenueTrend string       `json:"revenue_trend"`
	EPS          []TrendPoint `json:"eps"`
	Revenue      []TrendPoint `json:"revenue"`
}

// ComputeEarningsTrend keeps rows within years of the latest report date and
// classifies each metric independently. rows must be ascending by report date.
func ComputeEarningsTrend(symbol string, rows []marketdata.EarningsRow, years int) EarningsTrend {
	if years <= 0 {
		years = DefaultTrendYears
	}
	result := EarningsTrend{Symbol: symbol, Years: years}

	var latest time.Time
	for _, r := range rows {
		if r.ReportDate.After(latest) {
			latest = r.ReportDate
		}
	}
	cutoff := latest.AddDate(-years, 0, 0)

	for _, r := range rows {
		if r.ReportDate.Before(cutoff) {
			continue
		}
		if r.EPSActual != nil {
			result.EPS = append(result.EPS, TrendPoint{Date: r.ReportDateStr, Value: *r.EPSActual})
		}
		if r.RevenueActual != nil {
			result.Revenue = append(result.Revenue, TrendPoint{Date: r.ReportDateStr, Value: *r.RevenueActual})
		}
	}

	result.EPSTrend = ClassifyTrend(values(result.EPS))
	result.RevenueTrend = ClassifyTrend(values(result.Revenue))
	return result
}

// ClassifyTrend labels a series. A flat series counts as increasing.
func ClassifyTrend(series []float64) string {
	if len(series) < 2 {
		return TrendInsufficientData
	}

	nonDecreasing, nonIncreasing := true, true
	for i := 1; i < len(series); i++ {
		if series[i] < series[i-1] {
			nonDecreasing = false
		}
		if series[i] > series[i-1] {
			nonIncreasing = false
		}
	}

	switch {
	case nonDecreasing:
		return TrendIncreasing
	case nonIncreasing:
		return TrendDecreasing
	default:
		return TrendMixed
	}
}

func values(points []TrendPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// Package signals derives metrics from normalized market data.
// Every calculator is a pure function of its inputs.
package signals

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/marketdata"
)

// DefaultVolumePeriods is used when the caller gives no periods.
const DefaultVolumePeriods = "20,60"

// PeriodAverage is the average volume over the most recent Period rows.
type PeriodAverage struct {
	Period  int      `json:"period"`
	Average *float64 `json:"average"`
	// Ratio is avg(this period) / avg(shortest period); nil when the shortest average is zero or missing.
	Ratio *float64 `json:"ratio"`
}

// VolumeAverages is the result of the volume-average calculator.
type VolumeAverages struct {
	Symbol  string          `json:"symbol"`
	Rows    int             `json:"rows"`
	Latest  *float64        `json:"latest_volume"`
	Periods []PeriodAverage `json:"periods"`
	// Ratio is avg(shortest) / avg(longest); nil when either is unavailable.
	Ratio *float64 `json:"ratio"`
}

// Average returns the average for period, or nil.
func (v VolumeAverages) Average(period int) *float64 {
	for _, p := range v.Periods {
		if p.Period == period {
			return p.Average
		}
	}
	return nil
}

// ParsePeriods parses a comma-separated list of positive integers.
// The result is deduplicated and ascending. An empty string yields the defaults.
func ParsePeriods(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultVolumePeriods
	}

	seen := make(map[int]bool)
	var periods []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, &eodhd.APIError{
				Kind:    eodhd.KindBadRequest,
				Message: fmt.Sprintf("invalid period %q: periods must be positive integers", part),
			}
		}
		if !seen[n] {
			seen[n] = true
			periods = append(periods, n)
		}
	}
	if len(periods) == 0 {
		return nil, &eodhd.APIError{Kind: eodhd.KindBadRequest, Message: "no periods given"}
	}

	sort.Ints(periods)
	return periods, nil
}

// ComputeVolumeAverages averages the most recent P volumes of table for each period.
// periods must be ascending, as returned by ParsePeriods.
func ComputeVolumeAverages(table *marketdata.PriceTable, periods []int) VolumeAverages {
	result := VolumeAverages{}
	if table != nil {
		result.Symbol = table.Symbol
	}

	volumes := table.Volumes()
	result.Rows = len(volumes)
	if len(volumes) > 0 {
		last := volumes[len(volumes)-1]
		result.Latest = &last
	}

	if len(periods) == 0 {
		return result
	}

	// Ratios are taken from the unrounded averages; only outputs are rounded.
	averages := make([]*float64, len(periods))
	for i, p := range periods {
		if v, ok := sma(volumes, p); ok {
			averages[i] = &v
		}
	}

	shortest := averages[0]
	result.Periods = make([]PeriodAverage, len(periods))
	for i, p := range periods {
		result.Periods[i] = PeriodAverage{
			Period:  p,
			Average: roundPtr(averages[i], 2),
			Ratio:   roundPtr(ratio(averages[i], shortest), 4),
		}
	}
	result.Ratio = roundPtr(ratio(shortest, averages[len(averages)-1]), 4)

	return result
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}

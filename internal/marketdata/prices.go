package marketdata

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// PriceRow is a single day's normalized end-of-day price data.
type PriceRow struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        float64   `json:"volume"`
}

// PriceTable is a date-ascending, date-unique series of price rows for one symbol.
type PriceTable struct {
	Symbol string     `json:"symbol"`
	Rows   []PriceRow `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t *PriceTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Volumes returns the volume column in row order.
func (t *PriceTable) Volumes() []float64 {
	if t == nil {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Volume
	}
	return out
}

// rawPriceRow is the upstream /eod row.
type rawPriceRow struct {
	Date          string `json:"date"`
	Open          Number `json:"open"`
	High          Number `json:"high"`
	Low           Number `json:"low"`
	Close         Number `json:"close"`
	AdjustedClose Number `json:"adjusted_close"`
	Volume        Number `json:"volume"`
}

// NormalizePrices converts an /eod payload (array of rows, or a single row object)
// into rows sorted ascending by date. Rows with a null volume are dropped; when dates
// repeat the first occurrence wins.
func NormalizePrices(body json.RawMessage) ([]PriceRow, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var raw []rawPriceRow
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, malformed(eodhd.OpPrice, "invalid price rows: %v", err)
		}
	case '{':
		var single rawPriceRow
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, malformed(eodhd.OpPrice, "invalid price row: %v", err)
		}
		raw = []rawPriceRow{single}
	default:
		return nil, malformed(eodhd.OpPrice, "expected an array of price rows")
	}

	rows := make([]PriceRow, 0, len(raw))
	for i, r := range raw {
		date, err := time.Parse(eodhd.DateLayout, r.Date)
		if err != nil {
			return nil, malformed(eodhd.OpPrice, "row %d: invalid date %q", i, r.Date)
		}

		required := map[string]Number{"open": r.Open, "high": r.High, "low": r.Low, "close": r.Close}
		for _, name := range []string{"open", "high", "low", "close"} {
			n := required[name]
			if !n.Valid {
				return nil, malformed(eodhd.OpPrice, "row %d (%s): missing %s", i, r.Date, name)
			}
			if !finiteNonNegative(n.Value) {
				return nil, malformed(eodhd.OpPrice, "row %d (%s): invalid %s %v", i, r.Date, name, n.Value)
			}
		}

		// Placeholder rows for non-trading days carry no volume.
		if !r.Volume.Valid {
			continue
		}
		if !finiteNonNegative(r.Volume.Value) {
			return nil, malformed(eodhd.OpPrice, "row %d (%s): invalid volume %v", i, r.Date, r.Volume.Value)
		}

		adjusted := r.Close.Value
		if r.AdjustedClose.Valid {
			if !finiteNonNegative(r.AdjustedClose.Value) {
				return nil, malformed(eodhd.OpPrice, "row %d (%s): invalid adjusted_close %v", i, r.Date, r.AdjustedClose.Value)
			}
			adjusted = r.AdjustedClose.Value
		}

		rows = append(rows, PriceRow{
			Date:          date,
			DateStr:       date.Format(eodhd.DateLayout),
			Open:          r.Open.Value,
			High:          r.High.Value,
			Low:           r.Low.Value,
			Close:         r.Close.Value,
			AdjustedClose: adjusted,
			Volume:        r.Volume.Value,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	unique := rows[:0]
	for i, r := range rows {
		if i > 0 && r.Date.Equal(unique[len(unique)-1].Date) {
			continue
		}
		unique = append(unique, r)
	}

	return unique, nil
}

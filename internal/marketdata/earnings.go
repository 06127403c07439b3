package marketdata

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// EarningsRow is one reported (or scheduled) earnings event.
// Missing estimates or actuals are nil, never zero.
type EarningsRow struct {
	Symbol          string    `json:"symbol"`
	ReportDate      time.Time `json:"-"`
	ReportDateStr   string    `json:"report_date"`
	EPSEstimate     *float64  `json:"eps_estimate"`
	EPSActual       *float64  `json:"eps_actual"`
	RevenueEstimate *float64  `json:"revenue_estimate"`
	RevenueActual   *float64  `json:"revenue_actual"`
}

// rawEarningsRow accepts both the calendar field names and the normalized ones.
type rawEarningsRow struct {
	Code            string `json:"code"`
	Symbol          string `json:"symbol"`
	ReportDate      string `json:"report_date"`
	Date            string `json:"date"`
	Estimate        Number `json:"estimate"`
	EPSEstimate     Number `json:"eps_estimate"`
	Actual          Number `json:"actual"`
	EPSActual       Number `json:"eps_actual"`
	RevenueEstimate Number `json:"revenue_estimate"`
	RevenueEstCamel Number `json:"revenueEstimate"`
	RevenueActual   Number `json:"revenue_actual"`
	RevenueActCamel Number `json:"revenueActual"`
	Revenue         Number `json:"revenue"`
}

func firstValid(nums ...Number) *float64 {
	for _, n := range nums {
		if n.Valid {
			return n.Ptr()
		}
	}
	return nil
}

func (r rawEarningsRow) normalize(fallbackSymbol string) (EarningsRow, error) {
	symbol := r.Code
	if symbol == "" {
		symbol = r.Symbol
	}
	if symbol == "" {
		symbol = fallbackSymbol
	}

	dateStr := r.ReportDate
	if dateStr == "" {
		dateStr = r.Date
	}
	date, err := time.Parse(eodhd.DateLayout, dateStr)
	if err != nil {
		return EarningsRow{}, malformed(eodhd.OpEarnings, "earnings row for %q: invalid report date %q", symbol, dateStr)
	}

	return EarningsRow{
		Symbol:          strings.ToUpper(symbol),
		ReportDate:      date,
		ReportDateStr:   date.Format(eodhd.DateLayout),
		EPSEstimate:     firstValid(r.EPSEstimate, r.Estimate),
		EPSActual:       firstValid(r.EPSActual, r.Actual),
		RevenueEstimate: firstValid(r.RevenueEstimate, r.RevenueEstCamel),
		RevenueActual:   firstValid(r.RevenueActual, r.RevenueActCamel, r.Revenue),
	}, nil
}

// NormalizeEarnings flattens an earnings payload into rows sorted by report date,
// then symbol. Accepted variants:
//   - an array of rows
//   - {"earnings": [rows...]} (the calendar envelope)
//   - {"AAPL.US": [rows...], "MSFT.US": [rows...]} (per-symbol lists)
//   - a single row object
func NormalizeEarnings(body json.RawMessage) ([]EarningsRow, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var rows []EarningsRow
	appendRows := func(raw []rawEarningsRow, fallback string) error {
		for _, r := range raw {
			row, err := r.normalize(fallback)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	}

	switch body[0] {
	case '[':
		var raw []rawEarningsRow
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, malformed(eodhd.OpEarnings, "invalid earnings rows: %v", err)
		}
		if err := appendRows(raw, ""); err != nil {
			return nil, err
		}

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, malformed(eodhd.OpEarnings, "invalid earnings payload: %v", err)
		}

		if envelope, ok := fields["earnings"]; ok {
			var raw []rawEarningsRow
			if err := json.Unmarshal(envelope, &raw); err != nil {
				return nil, malformed(eodhd.OpEarnings, "invalid earnings list: %v", err)
			}
			if err := appendRows(raw, ""); err != nil {
				return nil, err
			}
			break
		}

		if isRowObject(fields) {
			var single rawEarningsRow
			if err := json.Unmarshal(body, &single); err != nil {
				return nil, malformed(eodhd.OpEarnings, "invalid earnings row: %v", err)
			}
			if err := appendRows([]rawEarningsRow{single}, ""); err != nil {
				return nil, err
			}
			break
		}

		symbols := make([]string, 0, len(fields))
		for k := range fields {
			symbols = append(symbols, k)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			var raw []rawEarningsRow
			if err := json.Unmarshal(fields[symbol], &raw); err != nil {
				return nil, malformed(eodhd.OpEarnings, "invalid earnings list for %s: %v", symbol, err)
			}
			if err := appendRows(raw, symbol); err != nil {
				return nil, err
			}
		}

	default:
		return nil, malformed(eodhd.OpEarnings, "expected an array or object of earnings rows")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ReportDate.Equal(rows[j].ReportDate) {
			return rows[i].ReportDate.Before(rows[j].ReportDate)
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	return rows, nil
}

// isRowObject reports whether an object is itself a single earnings row.
func isRowObject(fields map[string]json.RawMessage) bool {
	_, hasReport := fields["report_date"]
	_, hasDate := fields["date"]
	return hasReport || hasDate
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/eodhd-mcp/internal/services/market"
	"github.com/ternarybob/eodhd-mcp/internal/signals"
)

// formatPrices formats an OHLCV table as markdown
func formatPrices(result *market.PriceResult) string {
	if result == nil || result.PriceTable.Empty() {
		symbol := ""
		if result != nil {
			symbol = result.Symbol
		}
		return fmt.Sprintf("No price data found for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s Prices (%s to %s, %d rows)\n\n", result.Symbol, result.From, result.To, len(result.Rows)))
	sb.WriteString("| Date | Open | High | Low | Close | Adj Close | Volume |\n")
	sb.WriteString("|------|------|------|-----|-------|-----------|--------|\n")
	for _, row := range result.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.4f | %.4f | %.0f |\n",
			row.DateStr, row.Open, row.High, row.Low, row.Close, row.AdjustedClose, row.Volume))
	}
	return sb.String()
}

// formatEarningsCalendar formats earnings reports as markdown
func formatEarningsCalendar(result *market.EarningsCalendar) string {
	if result == nil || len(result.Rows) == 0 {
		scope := "the requested period"
		if result != nil {
			scope = fmt.Sprintf("%s to %s", result.From, result.To)
			if len(result.Symbols) > 0 {
				scope += " (" + strings.Join(result.Symbols, ", ") + ")"
			}
		}
		return fmt.Sprintf("No earnings data found for %s.", scope)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Earnings Calendar (%s to %s, %d reports)\n\n", result.From, result.To, len(result.Rows)))
	sb.WriteString("| Symbol | Report Date | EPS Est | EPS Actual | Revenue Est | Revenue Actual |\n")
	sb.WriteString("|--------|-------------|---------|------------|-------------|----------------|\n")
	for _, row := range result.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			row.Symbol, row.ReportDateStr,
			formatOptional(row.EPSEstimate, 4), formatOptional(row.EPSActual, 4),
			formatOptional(row.RevenueEstimate, 0), formatOptional(row.RevenueActual, 0)))
	}
	return sb.String()
}

// formatFundamentals renders each category as an indented JSON block
func formatFundamentals(result *market.FundamentalsResult) string {
	if result.Empty() {
		symbol := ""
		if result != nil {
			symbol = result.Symbol
		}
		return fmt.Sprintf("No fundamentals data found for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s Fundamentals\n\n", result.Symbol))
	for _, category := range result.Data.Categories() {
		sb.WriteString(fmt.Sprintf("## %s\n\n```json\n", category))
		data, err := json.MarshalIndent(result.Data[category], "", "  ")
		if err != nil {
			sb.WriteString(fmt.Sprintf("(unrenderable: %v)", err))
		} else {
			sb.Write(data)
		}
		sb.WriteString("\n```\n\n")
	}
	return sb.String()
}

// formatIndexComponents formats index constituents as markdown
func formatIndexComponents(result *market.IndexComponentsResult) string {
	if result.Empty() {
		index := ""
		if result != nil {
			index = result.Index
		}
		return fmt.Sprintf("No index components found for %s.", index)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s Components (%d)\n\n", result.Index, len(result.Components)))
	sb.WriteString("| Symbol | Name | Sector | Industry | Weight |\n")
	sb.WriteString("|--------|------|--------|----------|--------|\n")
	for _, c := range result.Components {
		symbol := c.Symbol
		if c.Exchange != "" {
			symbol += "." + c.Exchange
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			symbol, c.Name, c.Sector, c.Industry, formatOptional(c.Weight, 4)))
	}
	return sb.String()
}

// formatGrowthRates formats growth metrics as percentages
func formatGrowthRates(result *market.GrowthResult) string {
	if result == nil || len(result.Rates) == 0 {
		symbol := ""
		if result != nil {
			symbol = result.Symbol
		}
		return fmt.Sprintf("No growth data found for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s Growth Rates\n\n", result.Symbol))
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, name := range result.Rates.Names() {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, formatPercent(result.Rates[name])))
	}
	return sb.String()
}

// formatVolumeAverages formats per-period volume averages
func formatVolumeAverages(result *signals.VolumeAverages) string {
	if result == nil || result.Rows == 0 {
		symbol := ""
		if result != nil {
			symbol = result.Symbol
		}
		return fmt.Sprintf("No volume data found for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s Volume Averages (%d trading days)\n\n", result.Symbol, result.Rows))
	sb.WriteString(fmt.Sprintf("**Latest volume:** %s\n", formatOptional(result.Latest, 0)))
	sb.WriteString(fmt.Sprintf("**Volume ratio:** %s\n\n", formatOptional(result.Ratio, 4)))
	sb.WriteString("| Period | Average | Ratio |\n")
	sb.WriteString("|--------|---------|-------|\n")
	for _, p := range result.Periods {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", p.Period, formatOptional(p.Average, 2), formatOptional(p.Ratio, 4)))
	}
	return sb.String()
}

// formatEarningsTrend formats the EPS and revenue trend classification
func formatEarningsTrend(result *signals.EarningsTrend) string {
	if result == nil || (len(result.EPS) == 0 && len(result.Revenue) == 0) {
		symbol := ""
		if result != nil {
			symbol = result.Symbol
		}
		return fmt.Sprintf("No earnings data found for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s Earnings Trend (%d years)\n\n", result.Symbol, result.Years))
	sb.WriteString(fmt.Sprintf("**EPS trend:** %s\n", result.EPSTrend))
	sb.WriteString(fmt.Sprintf("**Revenue trend:** %s\n\n", result.RevenueTrend))
	writeSeries(&sb, "EPS", result.EPS, 4)
	writeSeries(&sb, "Revenue", result.Revenue, 0)
	return sb.String()
}

func writeSeries(sb *strings.Builder, title string, points []signals.TrendPoint, places int) {
	if len(points) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n| Date | Value |\n|------|-------|\n", title))
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("| %s | %.*f |\n", p.Date, places, p.Value))
	}
	sb.WriteString("\n")
}

func formatOptional(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", places, *v)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a parsed exchange-qualified ticker in EODHD terms.
// Exchange is the EODHD exchange suffix (e.g., "US", "AU", "LSE").
type Ticker struct {
	// Code is the security code (e.g., "AAPL")
	Code string
	// Exchange is the EODHD exchange suffix (e.g., "US")
	Exchange string
	// Raw is the original ticker string
	Raw string
}

// ExchangeAliases maps venue names callers commonly use to EODHD exchange suffixes.
var ExchangeAliases = map[string]string{
	"NYSE":   "US",
	"NASDAQ": "US",
	"AMEX":   "US",
	"ASX":    "AU",
	"TSX":    "TO",
	"LON":    "LSE",
	"FRA":    "XETRA",
}

// NormalizeExchange upper-cases an exchange and resolves venue aliases.
func NormalizeExchange(exchange string) string {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if alias, ok := ExchangeAliases[exchange]; ok {
		return alias
	}
	return exchange
}

// ParseTicker parses a ticker string.
// Supports formats:
//   - "AAPL.US" -> Code="AAPL", Exchange="US" (EODHD format)
//   - "NASDAQ:AAPL" -> Code="AAPL", Exchange="US" (venue prefix)
//   - "aapl" -> Code="AAPL", Exchange=defaultExchange
//
// Codes that themselves contain dots (e.g., "BRK.B") need an explicit exchange suffix.
func ParseTicker(ticker, defaultExchange string) Ticker {
	raw := ticker
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Code:     ticker[idx+1:],
			Exchange: NormalizeExchange(ticker[:idx]),
			Raw:      raw,
		}
	}

	if idx := strings.LastIndex(ticker, "."); idx > 0 && idx < len(ticker)-1 {
		return Ticker{
			Code:     ticker[:idx],
			Exchange: NormalizeExchange(ticker[idx+1:]),
			Raw:      raw,
		}
	}

	return Ticker{
		Code:     ticker,
		Exchange: NormalizeExchange(defaultExchange),
		Raw:      raw,
	}
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "NASDAQ:AAPL" -> "AAPL.US"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	if t.Exchange == "" {
		return t.Code
	}
	return t.Code + "." + t.Exchange
}

// ParseTickerList parses a comma-separated list of tickers, skipping blanks.
func ParseTickerList(list, defaultExchange string) []Ticker {
	var result []Ticker
	for _, part := range strings.Split(list, ",") {
		if parsed := ParseTicker(part, defaultExchange); parsed.Code != "" {
			result = append(result, parsed)
		}
	}
	return result
}

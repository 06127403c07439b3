package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		input        string
		defaultEx    string
		wantExchange string
		wantCode     string
		wantEODHD    string
	}{
		// EODHD format (CODE.EXCHANGE)
		{"AAPL.US", "US", "US", "AAPL", "AAPL.US"},
		{"VOD.LSE", "US", "LSE", "VOD", "VOD.LSE"},
		{"BHP.AU", "", "AU", "BHP", "BHP.AU"},

		// Venue prefix with colon separator
		{"NASDAQ:MSFT", "US", "US", "MSFT", "MSFT.US"},
		{"ASX:GNP", "US", "AU", "GNP", "GNP.AU"},
		{"TSX:SHOP", "US", "TO", "SHOP", "SHOP.TO"},

		// Bare code uses the default exchange
		{"AAPL", "US", "US", "AAPL", "AAPL.US"},
		{"BHP", "asx", "AU", "BHP", "BHP.AU"},
		{"GSPC", "INDX", "INDX", "GSPC", "GSPC.INDX"},

		// Case and whitespace normalization
		{"  aapl.us  ", "", "US", "AAPL", "AAPL.US"},
		{"msft", "us", "US", "MSFT", "MSFT.US"},

		// Empty input
		{"", "US", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input, tt.defaultEx)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestNormalizeExchange(t *testing.T) {
	tests := map[string]string{
		"nyse":  "US",
		"ASX":   "AU",
		" lse ": "LSE",
		"XETRA": "XETRA",
		"":      "",
	}

	for input, want := range tests {
		if got := NormalizeExchange(input); got != want {
			t.Errorf("NormalizeExchange(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseTickerList(t *testing.T) {
	result := ParseTickerList("AAPL, msft.us,,ASX:BHP , ", "US")

	want := []string{"AAPL.US", "MSFT.US", "BHP.AU"}
	if len(result) != len(want) {
		t.Fatalf("ParseTickerList returned %d tickers, want %d", len(result), len(want))
	}
	for i, w := range want {
		if got := result[i].EODHDSymbol(); got != w {
			t.Errorf("result[%d] = %q, want %q", i, got, w)
		}
	}
}

package common

import (
	"time"

	"github.com/scmhub/calendar"
)

// exchangeMIC maps EODHD exchange suffixes to ISO 10383 market identifiers.
var exchangeMIC = map[string]string{
	"US":    "xnys",
	"LSE":   "xlon",
	"TO":    "xtse",
	"V":     "xtsx",
	"AU":    "xasx",
	"XETRA": "xfra",
	"F":     "xfra",
	"PA":    "xpar",
	"AS":    "xams",
	"BR":    "xbru",
	"MI":    "xmil",
	"MC":    "xmad",
	"ST":    "xsto",
	"CO":    "xcse",
	"HE":    "xhel",
	"VI":    "xwbo",
	"SW":    "xswx",
	"HK":    "xhkg",
	"KO":    "xkrx",
	"SHG":   "xshg",
	"SHE":   "xshe",
}

// TradingCalendar answers trading-day questions for one exchange.
// Exchanges without a known calendar fall back to Monday to Friday.
type TradingCalendar struct {
	calendar *calendar.Calendar
	location *time.Location
	MIC      string
}

// NewTradingCalendar returns the calendar for an EODHD exchange suffix.
func NewTradingCalendar(exchange string) *TradingCalendar {
	mic, ok := exchangeMIC[NormalizeExchange(exchange)]
	if !ok {
		return &TradingCalendar{location: time.UTC}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return &TradingCalendar{location: time.UTC, MIC: mic}
	}

	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}
	return &TradingCalendar{calendar: cal, location: loc, MIC: mic}
}

// IsTradingDay reports whether the exchange trades on the given date.
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.location)
	if tc.calendar == nil {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.calendar.IsBusinessDay(date)
}

// maxLookbackDays bounds the calendar walk for absurd requests.
const maxLookbackDays = 3660

// LookbackStart returns the earliest date such that [start, end] contains at least
// tradingDays trading days. end counts when it is itself a trading day.
func (tc *TradingCalendar) LookbackStart(end time.Time, tradingDays int) time.Time {
	day := time.Date(end.Year(), end.Month(), end.Day(), 12, 0, 0, 0, tc.location)
	if tradingDays <= 0 {
		return truncateDay(day)
	}

	found := 0
	for i := 0; i < maxLookbackDays; i++ {
		if tc.IsTradingDay(day) {
			found++
			if found >= tradingDays {
				return truncateDay(day)
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return truncateDay(day)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

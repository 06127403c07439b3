// Package market runs one EODHD pipeline per tool call: parameter validation,
// the response cache, the client fetch, normalization and derived metrics.
package market

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/common"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/interfaces"
	"github.com/ternarybob/eodhd-mcp/internal/marketdata"
	"github.com/ternarybob/eodhd-mcp/internal/signals"
)

const (
	// DefaultPriceWindow is the lookback for get_stock_price when no dates are given.
	DefaultPriceWindow = 30 * 24 * time.Hour

	// DefaultEarningsWindow is the look-ahead for get_earnings_calendar when no dates are given.
	DefaultEarningsWindow = 7 * 24 * time.Hour

	// IndexSuffix is the EODHD exchange code for indices.
	IndexSuffix = ".INDX"
)

// Service provides the market data operations behind the MCP tools.
type Service struct {
	fetcher         interfaces.MarketDataFetcher
	cache           interfaces.ResponseCache
	logger          arbor.ILogger
	validate        *validator.Validate
	now             func() time.Time
	defaultExchange string
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables response caching.
func WithCache(cache interfaces.ResponseCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithClock overrides the time source used for default date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDefaultExchange sets the exchange used when a tool call omits one.
func WithDefaultExchange(exchange string) Option {
	return func(s *Service) {
		s.defaultExchange = common.NormalizeExchange(exchange)
	}
}

// NewService creates a new market data service.
func NewService(fetcher interfaces.MarketDataFetcher, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		fetcher:         fetcher,
		logger:          logger,
		validate:        newValidator(),
		now:             time.Now,
		defaultExchange: eodhd.DefaultExchange,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today returns the current date at midnight UTC.
func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// ticker resolves a symbol and optional exchange to an EODHD ticker.
func (s *Service) ticker(symbol, exchange string) common.Ticker {
	if strings.TrimSpace(exchange) == "" {
		exchange = s.defaultExchange
	}
	return common.ParseTicker(symbol, exchange)
}

// fetch runs a request through the cache and the client. Only successful outcomes are cached.
func (s *Service) fetch(ctx context.Context, req eodhd.Request) (*eodhd.Response, error) {
	key := req.Key()

	if s.cache != nil {
		if resp, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug().Str("op", string(req.Op)).Str("path", req.Path()).Msg("Cache hit")
			return resp, nil
		}
	}

	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.logger.Warn().Err(err).Str("op", string(req.Op)).Msg("Failed to cache response")
		}
	}
	return resp, nil
}

// PriceResult is the output of GetStockPrice.
type PriceResult struct {
	marketdata.PriceTable
	From string `json:"from"`
	To   string `json:"to"`
}

// GetStockPrice returns end-of-day prices. Without dates the last 30 days are returned;
// with only one bound the other is filled from the same window.
func (s *Service) GetStockPrice(ctx context.Context, req StockPriceRequest) (*PriceResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	from, err := parseDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To)
	if err != nil {
		return nil, err
	}

	switch {
	case from.IsZero() && to.IsZero():
		to = s.today()
		from = to.Add(-DefaultPriceWindow)
	case from.IsZero():
		from = to.Add(-DefaultPriceWindow)
	case to.IsZero():
		to = s.today()
	}

	t := s.ticker(req.Symbol, req.Exchange)
	table, err := s.prices(ctx, t, from, to)
	if err != nil {
		return nil, err
	}

	return &PriceResult{
		PriceTable: *table,
		From:       from.Format(eodhd.DateLayout),
		To:         to.Format(eodhd.DateLayout),
	}, nil
}

func (s *Service) prices(ctx context.Context, t common.Ticker, from, to time.Time) (*marketdata.PriceTable, error) {
	req := eodhd.NewRequest(eodhd.OpPrice, eodhd.WithExchange(t.Exchange), eodhd.WithDateRange(from, to))
	req.Symbol = t.EODHDSymbol()

	resp, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	table := &marketdata.PriceTable{Symbol: req.Symbol}
	if resp.Empty {
		return table, nil
	}
	rows, err := marketdata.NormalizePrices(resp.Body)
	if err != nil {
		return nil, withEndpoint(err, req.Path())
	}
	table.Rows = rows
	return table, nil
}

// EarningsCalendar is the output of GetEarningsCalendar.
type EarningsCalendar struct {
	From    string                   `json:"from"`
	To      string                   `json:"to"`
	Symbols []string                 `json:"symbols,omitempty"`
	Rows    []marketdata.EarningsRow `json:"rows"`
}

// GetEarningsCalendar returns reported and scheduled earnings. Without dates the
// window is today through seven days ahead.
func (s *Service) GetEarningsCalendar(ctx context.Context, req EarningsCalendarRequest) (*EarningsCalendar, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	from, err := parseDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To)
	if err != nil {
		return nil, err
	}

	switch {
	case from.IsZero() && to.IsZero():
		from = s.today()
		to = from.Add(DefaultEarningsWindow)
	case from.IsZero():
		from = to.Add(-DefaultEarningsWindow)
	case to.IsZero():
		to = from.Add(DefaultEarningsWindow)
	}

	var symbols []string
	for _, t := range common.ParseTickerList(req.Symbols, s.defaultExchange) {
		symbols = append(symbols, t.EODHDSymbol())
	}

	rows, err := s.earnings(ctx, strings.Join(symbols, ","), from, to)
	if err != nil {
		return nil, err
	}

	return &EarningsCalendar{
		From:    from.Format(eodhd.DateLayout),
		To:      to.Format(eodhd.DateLayout),
		Symbols: symbols,
		Rows:    rows,
	}, nil
}

func (s *Service) earnings(ctx context.Context, symbols string, from, to time.Time) ([]marketdata.EarningsRow, error) {
	req := eodhd.NewRequest(eodhd.OpEarnings, eodhd.WithDateRange(from, to))
	req.Symbol = symbols

	resp, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Empty {
		return nil, nil
	}
	rows, err := marketdata.NormalizeEarnings(resp.Body)
	if err != nil {
		return nil, withEndpoint(err, req.Path())
	}
	return rows, nil
}

// FundamentalsResult is the output of GetFundamentals.
type FundamentalsResult struct {
	Symbol string                  `json:"symbol"`
	Data   marketdata.Fundamentals `json:"data"`
}

// Empty reports whether no categories were returned.
func (r *FundamentalsResult) Empty() bool {
	return r == nil || len(r.Data) == 0
}

// GetFundamentals returns the fundamentals document, optionally restricted to sections.
func (s *Service) GetFundamentals(ctx context.Context, req FundamentalsRequest) (*FundamentalsResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	t := s.ticker(req.Symbol, req.Exchange)
	data, err := s.fundamentals(ctx, t)
	if err != nil {
		return nil, err
	}

	if sections := splitList(req.Sections); len(sections) > 0 {
		filtered := marketdata.Fundamentals{}
		for _, name := range sections {
			for category, fields := range data {
				if strings.EqualFold(category, name) {
					filtered[category] = fields
				}
			}
		}
		data = filtered
	}

	return &FundamentalsResult{Symbol: t.EODHDSymbol(), Data: data}, nil
}

func (s *Service) fundamentals(ctx context.Context, t common.Ticker) (marketdata.Fundamentals, error) {
	req := eodhd.NewRequest(eodhd.OpFundamentals, eodhd.WithExchange(t.Exchange))
	req.Symbol = t.EODHDSymbol()

	resp, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Empty {
		return marketdata.Fundamentals{}, nil
	}
	data, err := marketdata.NormalizeFundamentals(resp.Body)
	if err != nil {
		return nil, withEndpoint(err, req.Path())
	}
	return data, nil
}

// IndexComponentsResult is the output of GetIndexComponents.
type IndexComponentsResult struct {
	Index      string                      `json:"index"`
	Components []marketdata.IndexComponent `json:"components"`
}

// Empty reports whether the index has no constituents.
func (r *IndexComponentsResult) Empty() bool {
	return r == nil || len(r.Components) == 0
}

// IndexCode upper-cases an index code and appends the .INDX suffix when missing.
func IndexCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !strings.HasSuffix(code, IndexSuffix) {
		code += IndexSuffix
	}
	return code
}

// GetIndexComponents returns the constituents of an index.
func (s *Service) GetIndexComponents(ctx context.Context, req IndexComponentsRequest) (*IndexComponentsResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	code := IndexCode(req.Index)
	r := eodhd.NewRequest(eodhd.OpIndexComponents)
	r.IndexCode = code

	resp, err := s.fetch(ctx, r)
	if err != nil {
		return nil, err
	}

	result := &IndexComponentsResult{Index: code}
	if resp.Empty {
		return result, nil
	}
	components, err := marketdata.NormalizeIndexComponents(resp.Body)
	if err != nil {
		return nil, withEndpoint(err, r.Path())
	}
	result.Components = components
	return result, nil
}

// GrowthResult is the output of GetGrowthRates.
type GrowthResult struct {
	Symbol string              `json:"symbol"`
	Rates  signals.GrowthRates `json:"rates"`
}

// GetGrowthRates extracts growth metrics from the fundamentals document.
func (s *Service) GetGrowthRates(ctx context.Context, req GrowthRatesRequest) (*GrowthResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	t := s.ticker(req.Symbol, req.Exchange)
	data, err := s.fundamentals(ctx, t)
	if err != nil {
		return nil, err
	}

	return &GrowthResult{Symbol: t.EODHDSymbol(), Rates: signals.ExtractGrowthRates(data)}, nil
}

// lookbackBuffer pads the trading-day window to absorb gaps in upstream data.
func lookbackBuffer(tradingDays int) int {
	return tradingDays/10 + 5
}

// GetVolumeAverages fetches enough history for the longest period and averages volumes.
func (s *Service) GetVolumeAverages(ctx context.Context, req VolumeAveragesRequest) (*signals.VolumeAverages, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	periods, err := signals.ParsePeriods(req.Periods)
	if err != nil {
		return nil, err
	}

	t := s.ticker(req.Symbol, req.Exchange)
	longest := periods[len(periods)-1]
	cal := common.NewTradingCalendar(t.Exchange)
	to := s.today()
	from := cal.LookbackStart(to, longest+lookbackBuffer(longest))

	s.logger.Debug().
		Str("symbol", t.EODHDSymbol()).
		Str("calendar", cal.MIC).
		Str("from", from.Format(eodhd.DateLayout)).
		Int("longest_period", longest).
		Msg("Computed volume lookback window")

	table, err := s.prices(ctx, t, from, to)
	if err != nil {
		return nil, err
	}

	result := signals.ComputeVolumeAverages(table, periods)
	return &result, nil
}

// GetEarningsTrend classifies EPS and revenue trends over the requested years.
func (s *Service) GetEarningsTrend(ctx context.Context, req EarningsTrendRequest) (*signals.EarningsTrend, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	years := req.Years
	if years == 0 {
		years = signals.DefaultTrendYears
	}

	t := s.ticker(req.Symbol, req.Exchange)
	to := s.today()
	// One extra quarter so the oldest report inside the window is not clipped.
	from := to.AddDate(-years, -3, 0)

	rows, err := s.earnings(ctx, t.EODHDSymbol(), from, to)
	if err != nil {
		return nil, err
	}

	result := signals.ComputeEarningsTrend(t.EODHDSymbol(), rows, years)
	return &result, nil
}

// withEndpoint attaches the request path to a normalization error.
func withEndpoint(err error, path string) error {
	if apiErr, ok := eodhd.AsAPIError(err); ok {
		copied := *apiErr
		copied.Endpoint = path
		return &copied
	}
	return err
}

func splitList(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[strings.ToLower(part)] {
			continue
		}
		seen[strings.ToLower(part)] = true
		out = append(out, part)
	}
	sort.Strings(out)
	return out
}

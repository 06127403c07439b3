package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/signals"
	badgerstore "github.com/ternarybob/eodhd-mcp/internal/storage/badger"
)

const testAPIKey = "service-test-key"

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type recorded struct {
	path  string
	query map[string]string
}

// newTestService wires a Service to an httptest server through a real client.
func newTestService(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Service, *[]recorded) {
	t.Helper()

	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		calls = append(calls, recorded{path: r.URL.Path, query: q})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := eodhd.NewClient(testAPIKey,
		eodhd.WithBaseURL(srv.URL),
		eodhd.WithHTTPClient(srv.Client()),
		eodhd.WithRateLimiter(eodhd.NewRateLimiter(0)),
		eodhd.WithRetrierOptions(eodhd.WithSleeper(func(ctx context.Context, d time.Duration) error { return ctx.Err() })),
	)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(client, arbor.NewLogger(), opts...), &calls
}

func respondJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func priceRowsJSON(n int) string {
	start := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rows[i] = map[string]any{
			"date":           start.AddDate(0, 0, i).Format(eodhd.DateLayout),
			"open":           100.0,
			"high":           101.0,
			"low":            99.0,
			"close":          100.5,
			"adjusted_close": 100.5,
			"volume":         (i + 1) * 1000,
		}
	}
	data, _ := json.Marshal(rows)
	return string(data)
}

func TestGetStockPrice_DefaultWindow(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(priceRowsJSON(3)))

	result, err := svc.GetStockPrice(context.Background(), StockPriceRequest{Symbol: "aapl"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/eod/AAPL.US", call.path)
	assert.Equal(t, "2024-02-14", call.query["from"])
	assert.Equal(t, "2024-03-15", call.query["to"])
	assert.Equal(t, "d", call.query["period"])
	assert.Equal(t, "a", call.query["order"])
	assert.Equal(t, testAPIKey, call.query["api_token"])

	assert.Equal(t, "AAPL.US", result.Symbol)
	assert.Equal(t, "2024-02-14", result.From)
	assert.Len(t, result.Rows, 3)
}

func TestGetStockPrice_ExplicitRangeAndExchange(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`[]`))

	result, err := svc.GetStockPrice(context.Background(), StockPriceRequest{
		Symbol:   "VOD",
		Exchange: "lse",
		From:     "2024-01-01",
		To:       "2024-01-31",
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/eod/VOD.LSE", (*calls)[0].path)
	assert.Equal(t, "2024-01-01", (*calls)[0].query["from"])
	assert.True(t, result.Empty())
}

func TestGetStockPrice_InvalidParameters(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`[]`))
	ctx := context.Background()

	tests := []struct {
		name string
		req  StockPriceRequest
		want string
	}{
		{"missing symbol", StockPriceRequest{}, "symbol is required"},
		{"bad date", StockPriceRequest{Symbol: "AAPL", From: "2024/01/01"}, "from_date must be a date"},
		{"bad symbol", StockPriceRequest{Symbol: "AAPL/../x"}, "symbol contains invalid characters"},
		{"reversed range", StockPriceRequest{Symbol: "AAPL", From: "2024-02-01", To: "2024-01-01"}, "after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetStockPrice(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, eodhd.IsKind(err, eodhd.KindBadRequest))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Empty(t, *calls, "invalid parameters never reach the network")
}

func TestGetStockPrice_UpstreamErrors(t *testing.T) {
	svc, calls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.GetStockPrice(context.Background(), StockPriceRequest{Symbol: "AAPL"})
	require.Error(t, err)
	assert.True(t, eodhd.IsKind(err, eodhd.KindInvalidAPIKey))
	assert.NotContains(t, err.Error(), testAPIKey)
	assert.Len(t, *calls, 1)
}

func TestGetStockPrice_MalformedRows(t *testing.T) {
	svc, _ := newTestService(t, respondJSON(`[{"date":"2024-01-02","open":1,"high":1,"low":1,"volume":5}]`))

	_, err := svc.GetStockPrice(context.Background(), StockPriceRequest{Symbol: "AAPL"})
	require.Error(t, err)
	apiErr, ok := eodhd.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, eodhd.KindMalformedResponse, apiErr.Kind)
	assert.Equal(t, "/eod/AAPL.US", apiErr.Endpoint)
}

func TestGetEarningsCalendar_DefaultWindowAndSymbols(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`{"type":"Earnings","earnings":[
		{"code":"MSFT.US","report_date":"2024-03-20","estimate":2.8},
		{"code":"AAPL.US","report_date":"2024-03-18","actual":null,"estimate":2.1}
	]}`))

	result, err := svc.GetEarningsCalendar(context.Background(), EarningsCalendarRequest{Symbols: "aapl, msft"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/calendar/earnings", call.path)
	assert.Equal(t, "2024-03-15", call.query["from"])
	assert.Equal(t, "2024-03-22", call.query["to"])
	assert.Equal(t, "AAPL.US,MSFT.US", call.query["symbols"])

	assert.Equal(t, []string{"AAPL.US", "MSFT.US"}, result.Symbols)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "AAPL.US", result.Rows[0].Symbol)
	assert.Nil(t, result.Rows[0].EPSActual)
}

func TestGetEarningsCalendar_NotFoundIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	result, err := svc.GetEarningsCalendar(context.Background(), EarningsCalendarRequest{From: "2024-01-01", To: "2024-01-31"})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Symbols)
}

func TestGetFundamentals_Sections(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`{
		"General":{"Code":"AAPL","CIK":"0000320193"},
		"Highlights":{"PERatio":28.5},
		"Valuation":{"TrailingPE":28.5}
	}`))

	result, err := svc.GetFundamentals(context.Background(), FundamentalsRequest{Symbol: "AAPL.US", Sections: "general, highlights"})
	require.NoError(t, err)

	assert.Equal(t, "/fundamentals/AAPL.US", (*calls)[0].path)
	assert.Equal(t, []string{"General", "Highlights"}, result.Data.Categories())
	cik, _ := result.Data.Field("General", "CIK")
	assert.Equal(t, "0000320193", cik)
}

func TestGetIndexComponents_EmptyConstituents(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`{"General":{"Code":"GSPC","Name":"S&P 500 Index"},"Components":{}}`))

	result, err := svc.GetIndexComponents(context.Background(), IndexComponentsRequest{Index: "gspc"})
	require.NoError(t, err)

	assert.Equal(t, "/fundamentals/GSPC.INDX", (*calls)[0].path)
	assert.Equal(t, "GSPC.INDX", result.Index)
	assert.True(t, result.Empty())
}

func TestGetIndexComponents_Constituents(t *testing.T) {
	svc, _ := newTestService(t, respondJSON(`{"Components":{
		"0":{"Code":"AAPL","Exchange":"US","Name":"Apple Inc","Sector":"Technology"},
		"1":{"Code":"MSFT","Exchange":"US","Name":"Microsoft Corp","Sector":"Technology"}
	}}`))

	result, err := svc.GetIndexComponents(context.Background(), IndexComponentsRequest{Index: "GSPC.INDX"})
	require.NoError(t, err)
	require.Len(t, result.Components, 2)
	assert.Equal(t, "AAPL", result.Components[0].Symbol)
}

func TestIndexCode(t *testing.T) {
	assert.Equal(t, "GSPC.INDX", IndexCode("gspc"))
	assert.Equal(t, "GSPC.INDX", IndexCode(" GSPC.INDX "))
	assert.Equal(t, "MID.INDX", IndexCode("mid.indx"))
}

func TestGetGrowthRates(t *testing.T) {
	svc, _ := newTestService(t, respondJSON(`{"Highlights":{"QuarterlyRevenueGrowthYOY":"0.15","QuarterlyEarningsGrowthYOY":0.08}}`))

	result, err := svc.GetGrowthRates(context.Background(), GrowthRatesRequest{Symbol: "AAPL"})
	require.NoError(t, err)

	require.NotNil(t, result.Rates[signals.QuarterlyRevenueGrowthYOY])
	assert.InDelta(t, 0.15, *result.Rates[signals.QuarterlyRevenueGrowthYOY], 1e-9)
	require.NotNil(t, result.Rates[signals.QuarterlyEarningsGrowthYOY])
	assert.InDelta(t, 0.08, *result.Rates[signals.QuarterlyEarningsGrowthYOY], 1e-9)
}

func TestGetVolumeAverages(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(priceRowsJSON(70)))

	result, err := svc.GetVolumeAverages(context.Background(), VolumeAveragesRequest{Symbol: "AAPL", Periods: "60,10,20"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/eod/AAPL.US", call.path)
	assert.Equal(t, "2024-03-15", call.query["to"])
	from, err := time.Parse(eodhd.DateLayout, call.query["from"])
	require.NoError(t, err)
	// 60 trading days plus buffer spans well over 60 calendar days
	assert.True(t, from.Before(testNow.AddDate(0, 0, -90)), "from = %s", call.query["from"])

	assert.Equal(t, 70, result.Rows)
	require.Len(t, result.Periods, 3)
	assert.Equal(t, []int{10, 20, 60}, []int{result.Periods[0].Period, result.Periods[1].Period, result.Periods[2].Period})
	require.NotNil(t, result.Average(10))
	assert.InDelta(t, 65500, *result.Average(10), 1e-6)
	require.NotNil(t, result.Average(60))
	assert.InDelta(t, 40500, *result.Average(60), 1e-6)
	require.NotNil(t, result.Ratio)
	assert.InDelta(t, 1.6173, *result.Ratio, 1e-9)
}

func TestGetVolumeAverages_InvalidPeriods(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`[]`))

	_, err := svc.GetVolumeAverages(context.Background(), VolumeAveragesRequest{Symbol: "AAPL", Periods: "20,zero"})
	assert.True(t, eodhd.IsKind(err, eodhd.KindBadRequest))
	assert.Empty(t, *calls)
}

func TestGetEarningsTrend(t *testing.T) {
	svc, calls := newTestService(t, respondJSON(`[
		{"code":"AAPL.US","report_date":"2023-08-03","actual":1.0,"revenue_actual":80},
		{"code":"AAPL.US","report_date":"2023-11-02","actual":1.2,"revenue_actual":90},
		{"code":"AAPL.US","report_date":"2024-02-01","actual":1.5,"revenue_actual":85}
	]`))

	result, err := svc.GetEarningsTrend(context.Background(), EarningsTrendRequest{Symbol: "AAPL"})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/calendar/earnings", call.path)
	assert.Equal(t, "AAPL.US", call.query["symbols"])
	assert.Equal(t, "2021-12-15", call.query["from"])

	assert.Equal(t, signals.TrendIncreasing, result.EPSTrend)
	assert.Equal(t, signals.TrendMixed, result.RevenueTrend)
	assert.Equal(t, 2, result.Years)
}

func TestGetEarningsTrend_SingleReport(t *testing.T) {
	svc, _ := newTestService(t, respondJSON(`[{"code":"AAPL.US","report_date":"2024-02-01","actual":1.0}]`))

	result, err := svc.GetEarningsTrend(context.Background(), EarningsTrendRequest{Symbol: "AAPL", Years: 3})
	require.NoError(t, err)
	assert.Equal(t, signals.TrendInsufficientData, result.EPSTrend)
}

func TestService_CachesSuccessfulResponses(t *testing.T) {
	cache, err := badgerstore.NewInMemoryResponseCache(arbor.NewLogger(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	var hits atomic.Int32
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		respondJSON(`{"Components":[{"Code":"AAPL"}]}`)(w, r)
	}, WithCache(cache))
	ctx := context.Background()

	_, err = svc.GetIndexComponents(ctx, IndexComponentsRequest{Index: "GSPC"})
	require.Error(t, err)

	first, err := svc.GetIndexComponents(ctx, IndexComponentsRequest{Index: "GSPC"})
	require.NoError(t, err)
	second, err := svc.GetIndexComponents(ctx, IndexComponentsRequest{Index: "GSPC"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), hits.Load(), "errors are not cached, successes are")
}

package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetStockPriceTool returns the get_stock_price tool definition
func createGetStockPriceTool() mcp.Tool {
	return mcp.NewTool("get_stock_price",
		mcp.WithDescription("Get end-of-day OHLCV prices for a stock (defaults to the last 30 days)"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. AAPL or AAPL.US"),
		),
		mcp.WithString("exchange",
			mcp.Description("Exchange code (default: US)"),
		),
		mcp.WithString("from_date",
			mcp.Description("Start date, YYYY-MM-DD"),
		),
		mcp.WithString("to_date",
			mcp.Description("End date, YYYY-MM-DD"),
		),
	)
}

// createGetEarningsCalendarTool returns the get_earnings_calendar tool definition
func createGetEarningsCalendarTool() mcp.Tool {
	return mcp.NewTool("get_earnings_calendar",
		mcp.WithDescription("Get reported and upcoming earnings (defaults to the next 7 days)"),
		mcp.WithString("from_date",
			mcp.Description("Start date, YYYY-MM-DD"),
		),
		mcp.WithString("to_date",
			mcp.Description("End date, YYYY-MM-DD"),
		),
		mcp.WithString("symbols",
			mcp.Description("Comma-separated symbols to filter, e.g. AAPL.US,MSFT.US"),
		),
	)
}

// createGetFundamentalsTool returns the get_fundamentals tool definition
func createGetFundamentalsTool() mcp.Tool {
	return mcp.NewTool("get_fundamentals",
		mcp.WithDescription("Get company fundamentals grouped by category (General, Highlights, Valuation, Financials, ...)"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. AAPL"),
		),
		mcp.WithString("exchange",
			mcp.Description("Exchange code (default: US)"),
		),
		mcp.WithString("sections",
			mcp.Description("Comma-separated categories to include (default: all)"),
		),
	)
}

// createGetIndexComponentsTool returns the get_index_components tool definition
func createGetIndexComponentsTool() mcp.Tool {
	return mcp.NewTool("get_index_components",
		mcp.WithDescription("List the constituents of an index"),
		mcp.WithString("index_code",
			mcp.Required(),
			mcp.Description("Index code, e.g. GSPC or GSPC.INDX"),
		),
	)
}

// createGetGrowthRatesTool returns the get_growth_rates tool definition
func createGetGrowthRatesTool() mcp.Tool {
	return mcp.NewTool("get_growth_rates",
		mcp.WithDescription("Get quarterly and annual revenue and earnings growth rates"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. AAPL"),
		),
		mcp.WithString("exchange",
			mcp.Description("Exchange code (default: US)"),
		),
	)
}

// createGetVolumeAveragesTool returns the get_volume_averages tool definition
func createGetVolumeAveragesTool() mcp.Tool {
	return mcp.NewTool("get_volume_averages",
		mcp.WithDescription("Average trading volume over one or more trailing periods, with the short/long volume ratio"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. AAPL"),
		),
		mcp.WithString("exchange",
			mcp.Description("Exchange code (default: US)"),
		),
		mcp.WithString("periods",
			mcp.Description("Comma-separated periods in trading days (default: 20,60)"),
		),
	)
}

// createGetEarningsTrendTool returns the get_earnings_trend tool definition
func createGetEarningsTrendTool() mcp.Tool {
	return mcp.NewTool("get_earnings_trend",
		mcp.WithDescription("Classify the EPS and revenue trend over recent years"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Stock symbol, e.g. AAPL"),
		),
		mcp.WithString("exchange",
			mcp.Description("Exchange code (default: US)"),
		),
		mcp.WithNumber("years",
			mcp.Description("Years of history to consider (default: 2, max: 20)"),
		),
	)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/services/market"
	"github.com/ternarybob/eodhd-mcp/internal/signals"
)

// marketService is the subset of *market.Service the tools call
type marketService interface {
	GetStockPrice(ctx context.Context, req market.StockPriceRequest) (*market.PriceResult, error)
	GetEarningsCalendar(ctx context.Context, req market.EarningsCalendarRequest) (*market.EarningsCalendar, error)
	GetFundamentals(ctx context.Context, req market.FundamentalsRequest) (*market.FundamentalsResult, error)
	GetIndexComponents(ctx context.Context, req market.IndexComponentsRequest) (*market.IndexComponentsResult, error)
	GetGrowthRates(ctx context.Context, req market.GrowthRatesRequest) (*market.GrowthResult, error)
	GetVolumeAverages(ctx context.Context, req market.VolumeAveragesRequest) (*signals.VolumeAverages, error)
	GetEarningsTrend(ctx context.Context, req market.EarningsTrendRequest) (*signals.EarningsTrend, error)
}

// registerTools adds every tool to the MCP server
func registerTools(s *server.MCPServer, svc marketService, logger arbor.ILogger) {
	s.AddTool(createGetStockPriceTool(), handleGetStockPrice(svc, logger))
	s.AddTool(createGetEarningsCalendarTool(), handleGetEarningsCalendar(svc, logger))
	s.AddTool(createGetFundamentalsTool(), handleGetFundamentals(svc, logger))
	s.AddTool(createGetIndexComponentsTool(), handleGetIndexComponents(svc, logger))
	s.AddTool(createGetGrowthRatesTool(), handleGetGrowthRates(svc, logger))
	s.AddTool(createGetVolumeAveragesTool(), handleGetVolumeAverages(svc, logger))
	s.AddTool(createGetEarningsTrendTool(), handleGetEarningsTrend(svc, logger))
}

// toolCall tags a tool invocation with a request ID and logs its outcome
type toolCall struct {
	id     string
	tool   string
	start  time.Time
	logger arbor.ILogger
}

func beginCall(logger arbor.ILogger, tool string) *toolCall {
	c := &toolCall{id: uuid.New().String(), tool: tool, start: time.Now(), logger: logger}
	logger.Info().Str("request_id", c.id).Str("tool", tool).Msg("Tool call")
	return c
}

// fail logs err and converts it into an error result carrying the error kind
func (c *toolCall) fail(err error) *mcp.CallToolResult {
	event := c.logger.Warn().
		Str("request_id", c.id).
		Str("tool", c.tool).
		Str("duration", time.Since(c.start).String())

	var apiErr *eodhd.APIError
	if errors.As(err, &apiErr) {
		event.Str("kind", string(apiErr.Kind)).Int("status", apiErr.StatusCode).Msg(apiErr.Message)
		return errorResult(fmt.Sprintf("Error [%s]: %s", apiErr.Kind, apiErr.Message))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		event.Err(err).Msg("Tool call cancelled")
		return errorResult(fmt.Sprintf("Error [%s]: request cancelled", eodhd.KindNetworkError))
	}
	event.Err(err).Msg("Tool call failed")
	return errorResult(fmt.Sprintf("Error: %v", err))
}

func (c *toolCall) done(text string) *mcp.CallToolResult {
	c.logger.Debug().
		Str("request_id", c.id).
		Str("tool", c.tool).
		Str("duration", time.Since(c.start).String()).
		Msg("Tool call completed")
	return textResult(text)
}

// requiredString reads a required string argument
func requiredString(request mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	value, err := request.RequireString(name)
	if err != nil || value == "" {
		return "", errorResult(fmt.Sprintf("Error [%s]: %s parameter is required", eodhd.KindBadRequest, name))
	}
	return value, nil
}

// handleGetStockPrice implements the get_stock_price tool
func handleGetStockPrice(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, missing := requiredString(request, "symbol")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_stock_price")

		result, err := svc.GetStockPrice(ctx, market.StockPriceRequest{
			Symbol:   symbol,
			Exchange: request.GetString("exchange", ""),
			From:     request.GetString("from_date", ""),
			To:       request.GetString("to_date", ""),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatPrices(result)), nil
	}
}

// handleGetEarningsCalendar implements the get_earnings_calendar tool
func handleGetEarningsCalendar(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := beginCall(logger, "get_earnings_calendar")

		result, err := svc.GetEarningsCalendar(ctx, market.EarningsCalendarRequest{
			Symbols: request.GetString("symbols", ""),
			From:    request.GetString("from_date", ""),
			To:      request.GetString("to_date", ""),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatEarningsCalendar(result)), nil
	}
}

// handleGetFundamentals implements the get_fundamentals tool
func handleGetFundamentals(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, missing := requiredString(request, "symbol")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_fundamentals")

		result, err := svc.GetFundamentals(ctx, market.FundamentalsRequest{
			Symbol:   symbol,
			Exchange: request.GetString("exchange", ""),
			Sections: request.GetString("sections", ""),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatFundamentals(result)), nil
	}
}

// handleGetIndexComponents implements the get_index_components tool
func handleGetIndexComponents(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, missing := requiredString(request, "index_code")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_index_components")

		result, err := svc.GetIndexComponents(ctx, market.IndexComponentsRequest{Index: code})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatIndexComponents(result)), nil
	}
}

// handleGetGrowthRates implements the get_growth_rates tool
func handleGetGrowthRates(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, missing := requiredString(request, "symbol")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_growth_rates")

		result, err := svc.GetGrowthRates(ctx, market.GrowthRatesRequest{
			Symbol:   symbol,
			Exchange: request.GetString("exchange", ""),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatGrowthRates(result)), nil
	}
}

// handleGetVolumeAverages implements the get_volume_averages tool
func handleGetVolumeAverages(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, missing := requiredString(request, "symbol")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_volume_averages")

		result, err := svc.GetVolumeAverages(ctx, market.VolumeAveragesRequest{
			Symbol:   symbol,
			Exchange: request.GetString("exchange", ""),
			Periods:  request.GetString("periods", ""),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatVolumeAverages(result)), nil
	}
}

// handleGetEarningsTrend implements the get_earnings_trend tool
func handleGetEarningsTrend(svc marketService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, missing := requiredString(request, "symbol")
		if missing != nil {
			return missing, nil
		}
		call := beginCall(logger, "get_earnings_trend")

		result, err := svc.GetEarningsTrend(ctx, market.EarningsTrendRequest{
			Symbol:   symbol,
			Exchange: request.GetString("exchange", ""),
			Years:    request.GetInt("years", 0),
		})
		if err != nil {
			return call.fail(err), nil
		}
		return call.done(formatEarningsTrend(result)), nil
	}
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

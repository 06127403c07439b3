package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/eodhd-mcp/internal/common"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
	"github.com/ternarybob/eodhd-mcp/internal/httpclient"
	"github.com/ternarybob/eodhd-mcp/internal/services/market"
	badgerstore "github.com/ternarybob/eodhd-mcp/internal/storage/badger"
)

var (
	configFile  = flag.String("config", "", "Configuration file path (default: $EODHD_MCP_CONFIG or eodhd-mcp.toml if present)")
	transport   = flag.String("transport", "", "MCP transport: stdio or http (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()
	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("eodhd-mcp version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file -> .env -> env -> flags)
	// 2. Validate (API key is mandatory)
	// 3. Initialize logger
	config, err := common.LoadFromFile(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		config.Server.Transport = *transport
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.InstallCrashHandler(config.Logging.File)
	defer common.RecoverWithCrashFile()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("transport", config.Server.Transport).
		Str("base_url", config.EODHD.BaseURL).
		Int("max_retries", config.EODHD.MaxRetries).
		Str("rate_limit_delay", config.RateLimitDelay().String()).
		Msg("Starting EODHD MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newEODHDClient(config, logger)

	var opts []market.Option
	if ttl := config.CacheTTL(); ttl > 0 {
		cache, err := badgerstore.NewInMemoryResponseCache(logger, ttl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize response cache")
		}
		defer cache.Close()
		common.SafeGo(ctx, logger, "cachePurge", func() {
			purgeExpired(ctx, cache, ttl, logger)
		})
		opts = append(opts, market.WithCache(cache))
		logger.Debug().Str("ttl", ttl.String()).Msg("Response cache enabled")
	}

	service := market.NewService(client, logger, opts...)

	mcpServer := server.NewMCPServer(
		"eodhd-mcp",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, service, logger)

	switch config.Server.Transport {
	case common.TransportHTTP:
		serveHTTP(ctx, mcpServer, config.Server.HTTPAddr, logger)
	default:
		// Blocks on stdin until the client disconnects
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error().Err(err).Msg("MCP server failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// resolveConfigPath picks the config file from the flag, the environment, or the working directory
func resolveConfigPath() string {
	if *configFile != "" {
		return *configFile
	}
	if path := os.Getenv("EODHD_MCP_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("eodhd-mcp.toml"); err == nil {
		return "eodhd-mcp.toml"
	}
	return ""
}

// newEODHDClient builds the upstream client with a single shared rate limiter
func newEODHDClient(config *common.Config, logger arbor.ILogger) *eodhd.Client {
	policy := eodhd.DefaultRetryPolicy()
	policy.MaxRetries = config.EODHD.MaxRetries
	policy.BaseDelay = config.RateLimitDelay()

	return eodhd.NewClient(config.EODHD.APIKey,
		eodhd.WithBaseURL(config.EODHD.BaseURL),
		eodhd.WithLogger(logger),
		eodhd.WithHTTPClient(httpclient.NewDefaultHTTPClient()),
		eodhd.WithTimeout(config.RequestTimeout()),
		eodhd.WithRetryPolicy(policy),
		eodhd.WithRateLimiter(eodhd.NewRateLimiter(config.RateLimitDelay())),
	)
}

// purgeExpired periodically drops expired cache entries until ctx is done
func purgeExpired(ctx context.Context, cache *badgerstore.ResponseCache, interval time.Duration, logger arbor.ILogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := cache.Purge(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("Cache purge failed")
				continue
			}
			if purged > 0 {
				logger.Debug().Int("purged", purged).Msg("Expired cache entries removed")
			}
		}
	}
}

// serveHTTP runs the streamable HTTP transport until ctx is cancelled
func serveHTTP(ctx context.Context, mcpServer *server.MCPServer, addr string, logger arbor.ILogger) {
	common.PrintBanner(common.GetVersion())

	httpServer := server.NewStreamableHTTPServer(mcpServer)

	errCh := make(chan error, 1)
	common.SafeGo(ctx, logger, "httpServer", func() {
		errCh <- httpServer.Start(addr)
	})

	logger.Info().Str("url", fmt.Sprintf("http://%s/mcp", addr)).Msg("Server ready - Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		logger.Info().Msg("Interrupt signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

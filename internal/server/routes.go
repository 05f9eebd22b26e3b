package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // promhttp sets its own content type
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication; scrapers do not carry the key
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/addresses/pool", h.PoolAddresses)
	v1.GET("/addresses/hook", h.HookAddresses)

	quotes := v1.Group("/quote")
	quotes.GET("/swap", h.QuoteSwap)
	quotes.GET("/deposit", h.QuoteDeposit)
	quotes.GET("/withdraw", h.QuoteWithdraw)

	mints := v1.Group("/mints")
	mints.GET("", h.MintsList)
	mints.GET("/:mint", h.MintsGet)
	mints.PUT("/:mint", h.MintsPut)
	mints.DELETE("/:mint", h.MintsDelete)

	pools := v1.Group("/pools")
	pools.GET("", h.PoolsList)
	pools.POST("/import", h.PoolsImport)
	pools.POST("/refresh", h.PoolsRefresh)
	pools.GET("/:key", h.PoolsGet)
	pools.GET("/:key/reserves", h.PoolsReserves)
	pools.DELETE("/:key", h.PoolsDelete)

	// Each intent signs with the service wallet and pays fees
	intents := v1.Group("/intents")
	intents.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.IntentRate),
		Burst:     cfg.IntentBurst,
		ExpiresIn: 2 * time.Minute,
	})))
	intents.POST("/:name", h.RunIntent)

	v1.GET("/executions/recent", h.RecentExecutions)

	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/metrics"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/labstack/echo/v4"
)

func uintParam(c echo.Context, name string, bits int, required bool) (uint64, bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, !required
	}
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func slippageParam(c echo.Context) (uint16, bool) {
	if strings.TrimSpace(c.QueryParam("slippageBps")) == "" {
		return constants.DefaultSlippageBps, true
	}
	n, ok := uintParam(c, "slippageBps", 16, true)
	return uint16(n), ok
}

// quoteErr maps a pricing or reserve failure to a response and counts it.
func (h *Handlers) quoteErr(c echo.Context, kind string, err error) error {
	switch {
	case pricing.IsQuoteError(err):
		metrics.QuoteRequests.WithLabelValues(kind, "rejected").Inc()
		return h.err(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, assembler.ErrPoolNotReady):
		metrics.QuoteRequests.WithLabelValues(kind, "error").Inc()
		return h.err(c, http.StatusNotFound, "pool vaults not found", err.Error())
	default:
		metrics.QuoteRequests.WithLabelValues(kind, "error").Inc()
		return h.err(c, http.StatusBadGateway, "failed to read reserves", err.Error())
	}
}

// QuoteSwap prices a swap against a pool's live reserves.
// Query: pool, inputMint, amount (raw units), slippageBps (optional)
func (h *Handlers) QuoteSwap(c echo.Context) error {
	input, ok := h.addressParam(c, "inputMint", nil)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid inputMint", map[string]any{"inputMint": "required"})
	}
	amount, ok := uintParam(c, "amount", 64, true)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}
	slippage, ok := slippageParam(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, ok, err := h.lookupPool(c, ctx, c.QueryParam("pool"))
	if !ok {
		return err
	}
	var isX bool
	switch input {
	case p.MintX:
		isX = true
	case p.MintY:
	default:
		return h.err(c, http.StatusBadRequest, "inputMint is not in the pool", nil)
	}

	res, err := h.Engine.ReadReserves(ctx, p)
	if err != nil {
		return h.quoteErr(c, "swap", err)
	}
	rin, rout := res.Y, res.X
	if isX {
		rin, rout = res.X, res.Y
	}
	q, err := pricing.QuoteSwap(rin, rout, amount, p.FeeBps, slippage)
	if err != nil {
		return h.quoteErr(c, "swap", err)
	}

	metrics.QuoteRequests.WithLabelValues("swap", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"pool":     p.ID,
		"isX":      isX,
		"quote":    q,
		"reserves": res,
	})
}

// QuoteDeposit prices minting amountL LP tokens.
// Query: pool, amountL, maxX, maxY
func (h *Handlers) QuoteDeposit(c echo.Context) error {
	amountL, ok := uintParam(c, "amountL", 64, true)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amountL", map[string]any{"amountL": "must be uint64"})
	}
	maxX, ok := uintParam(c, "maxX", 64, true)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid maxX", map[string]any{"maxX": "must be uint64"})
	}
	maxY, ok := uintParam(c, "maxY", 64, true)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid maxY", map[string]any{"maxY": "must be uint64"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, ok, err := h.lookupPool(c, ctx, c.QueryParam("pool"))
	if !ok {
		return err
	}
	res, err := h.Engine.ReadReserves(ctx, p)
	if err != nil {
		return h.quoteErr(c, "deposit", err)
	}
	q, err := pricing.Deposit(res.X, res.Y, res.LPSupply, amountL, maxX, maxY)
	if err != nil {
		return h.quoteErr(c, "deposit", err)
	}

	metrics.QuoteRequests.WithLabelValues("deposit", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]any{"pool": p.ID, "quote": q, "reserves": res})
}

// QuoteWithdraw prices burning amountL LP tokens. Minima are derived from
// slippageBps when not given.
// Query: pool, amountL, minX, minY, slippageBps (all but pool and amountL optional)
func (h *Handlers) QuoteWithdraw(c echo.Context) error {
	amountL, ok := uintParam(c, "amountL", 64, true)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amountL", map[string]any{"amountL": "must be uint64"})
	}
	minX, ok := uintParam(c, "minX", 64, false)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid minX", map[string]any{"minX": "must be uint64"})
	}
	minY, ok := uintParam(c, "minY", 64, false)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid minY", map[string]any{"minY": "must be uint64"})
	}
	slippage, ok := slippageParam(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, ok, err := h.lookupPool(c, ctx, c.QueryParam("pool"))
	if !ok {
		return err
	}
	res, err := h.Engine.ReadReserves(ctx, p)
	if err != nil {
		return h.quoteErr(c, "withdraw", err)
	}
	if minX == 0 && minY == 0 {
		minX, minY, err = pricing.WithdrawMinima(res.X, res.Y, res.LPSupply, amountL, slippage)
		if err != nil {
			return h.quoteErr(c, "withdraw", err)
		}
	}
	q, err := pricing.Withdraw(res.X, res.Y, res.LPSupply, amountL, minX, minY)
	if err != nil {
		return h.quoteErr(c, "withdraw", err)
	}

	metrics.QuoteRequests.WithLabelValues("withdraw", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]any{"pool": p.ID, "quote": q, "reserves": res})
}

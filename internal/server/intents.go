package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func orDefault(bps *uint16) uint16 {
	if bps == nil {
		return constants.DefaultSlippageBps
	}
	return *bps
}

// decodeIntent binds the request body for the named intent.
func decodeIntent(c echo.Context, name string) (assembler.Intent, error) {
	switch name {
	case "initialize":
		var r InitializeRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.InitializeIntent{
			Seed:        r.Seed,
			MintX:       r.MintX,
			MintY:       r.MintY,
			FeeBps:      r.FeeBps,
			Authority:   r.Authority,
			NoAuthority: r.NoAuthority,
		}, nil
	case "deposit":
		var r DepositRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.DepositIntent{PoolKey: r.Pool, AmountL: r.AmountL, MaxX: r.MaxX, MaxY: r.MaxY}, nil
	case "swap":
		var r SwapRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.SwapIntent{
			PoolKey:          r.Pool,
			InputMint:        r.InputMint,
			AmountIn:         r.AmountIn,
			SlippageBps:      orDefault(r.SlippageBps),
			CollectHookFees:  r.CollectHookFees,
			HookFeeAllowance: r.HookFeeAllowance,
		}, nil
	case "withdraw":
		var r WithdrawRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.WithdrawIntent{
			PoolKey:     r.Pool,
			AmountL:     r.AmountL,
			MinX:        r.MinX,
			MinY:        r.MinY,
			SlippageBps: orDefault(r.SlippageBps),
		}, nil
	case "enable_hooks":
		var r EnableHooksRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.EnableHooksIntent{PoolKey: r.Pool}, nil
	case "create_hooked_mint":
		var r CreateMintRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.CreateHookedMintIntent{
			Decimals:      r.Decimals,
			Amount:        r.Amount,
			HookProgramID: r.HookProgramID,
			TokenName:     r.Name,
			Symbol:        r.Symbol,
			InitMetaList:  r.InitMetaList,
		}, nil
	case "create_custodial_pool":
		var r CustodialPoolRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.CustodialPoolIntent{
			MintX:   r.MintX,
			MintY:   r.MintY,
			AmountX: r.AmountX,
			AmountY: r.AmountY,
			FeeBps:  r.FeeBps,
		}, nil
	case "direct_swap":
		var r DirectSwapRequest
		if err := c.Bind(&r); err != nil {
			return nil, err
		}
		return &assembler.DirectSwapIntent{
			PoolKey:          r.Pool,
			InputMint:        r.InputMint,
			AmountIn:         r.AmountIn,
			SlippageBps:      orDefault(r.SlippageBps),
			HookFeeAllowance: r.HookFeeAllowance,
		}, nil
	}
	return nil, errUnknownIntent
}

var errUnknownIntent = errors.New("unknown intent")

// statusFor maps a pipeline failure to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, registry.ErrNotFound) {
		return http.StatusNotFound
	}
	var se *assembler.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case assembler.KindValidation:
		return http.StatusBadRequest
	case assembler.KindQuote, assembler.KindSimulation, assembler.KindLedger:
		return http.StatusUnprocessableEntity
	case assembler.KindNetwork:
		return http.StatusBadGateway
	case assembler.KindTimeout:
		return http.StatusGatewayTimeout
	case assembler.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RunIntent decodes and runs one intent. With dryRun=true the pipeline
// stops after simulation and nothing is signed.
func (h *Handlers) RunIntent(c echo.Context) error {
	name := c.Param("name")
	dryRun := false
	if v := c.QueryParam("dryRun"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid dryRun", map[string]any{"dryRun": "must be boolean"})
		}
		dryRun = b
	}

	intent, err := decodeIntent(c, name)
	if errors.Is(err, errUnknownIntent) {
		return h.err(c, http.StatusNotFound, "unknown intent", map[string]any{"name": name})
	}
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	if h.Flags != nil && !dryRun {
		ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
		paused, err := h.Flags.Paused(ctx, intent.Name())
		cancel()
		if err != nil {
			h.Logger.WithError(err).Warn("pause switch unreadable, continuing")
		}
		if paused {
			return h.err(c, http.StatusServiceUnavailable, "intent is paused", map[string]any{"intent": intent.Name()})
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.IntentTimeout)
	defer cancel()

	var exec *assembler.Execution
	if dryRun {
		exec, err = h.Engine.Prepare(ctx, intent)
	} else {
		exec, err = h.Engine.Execute(ctx, intent)
	}

	resp := IntentResponse{Execution: exec}
	if m, ok := intent.(*assembler.CreateHookedMintIntent); ok && !m.Mint().IsZero() {
		resp.Mint = m.Mint().String()
	}
	if err != nil {
		resp.Error = err.Error()
		var se *assembler.StageError
		if errors.As(err, &se) {
			resp.Kind = string(se.Kind)
		}
		code := statusFor(err)
		h.Logger.WithFields(logrus.Fields{
			"intent": name,
			"status": code,
			"error":  err,
		}).Warn("intent failed")
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

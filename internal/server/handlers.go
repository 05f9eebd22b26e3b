package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/flags"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/history"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/metrics"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Engine is the part of the assembler the handlers drive.
type Engine interface {
	Prepare(ctx context.Context, intent assembler.Intent) (*assembler.Execution, error)
	Execute(ctx context.Context, intent assembler.Intent) (*assembler.Execution, error)
	ReadReserves(ctx context.Context, p *registry.PoolDescriptor) (*registry.Reserves, error)
	RefreshReserves(ctx context.Context) (int, error)
	ImportPool(ctx context.Context, seed uint64, mintX, mintY solana.PublicKey) (*registry.PoolDescriptor, error)
	Options() assembler.Options
	Owner() solana.PublicKey
}

// HistoryReader lists finished executions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]*history.Record, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine   Engine
	Registry registry.Store
	Flags    *flags.Store  // optional; nil means nothing is paused
	History  HistoryReader // optional
	DevMode  bool
	Logger   *logrus.Logger
	// IntentTimeout bounds one pipeline run, confirmation included.
	IntentTimeout time.Duration
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	opts := h.Engine.Options()
	return c.JSON(http.StatusOK, HealthResponse{
		OK:          true,
		Owner:       h.Engine.Owner().String(),
		AMM:         opts.AMMProgramID.String(),
		Hook:        opts.HookProgramID.String(),
		WrappedMint: opts.Wrapped.Mint.String(),
	})
}

// PoolAddresses derives a pool's accounts from its seed and mints. Token
// programs default to the legacy program.
func (h *Handlers) PoolAddresses(c echo.Context) error {
	seed, err := strconv.ParseUint(strings.TrimSpace(c.QueryParam("seed")), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid seed", map[string]any{"seed": "must be uint64"})
	}
	mintX, ok := h.addressParam(c, "mintX", nil)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mintX", nil)
	}
	mintY, ok := h.addressParam(c, "mintY", nil)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mintY", nil)
	}
	legacy := solana.TokenProgramID
	progX, ok := h.addressParam(c, "tokenProgramX", &legacy)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid tokenProgramX", nil)
	}
	progY, ok := h.addressParam(c, "tokenProgramY", &legacy)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid tokenProgramY", nil)
	}

	addrs, err := pda.Pool(h.Engine.Options().AMMProgramID, seed, mintX, mintY, progX, progY)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "cannot derive pool", err.Error())
	}
	return c.JSON(http.StatusOK, PoolAddressesResponse{
		ProgramID:    addrs.ProgramID.String(),
		Seed:         addrs.Seed,
		Config:       addrs.Config.String(),
		LPMint:       addrs.LPMint.String(),
		SolVault:     addrs.SolVault.String(),
		HookFeeVault: addrs.HookFeeVault.String(),
		VaultX:       addrs.VaultX.String(),
		VaultY:       addrs.VaultY.String(),
	})
}

// HookAddresses derives the extra accounts a transfer of mint by owner
// hands the hook program. Owner defaults to the service wallet.
func (h *Handlers) HookAddresses(c echo.Context) error {
	mint, ok := h.addressParam(c, "mint", nil)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid mint", nil)
	}
	owner := h.Engine.Owner()
	if owner, ok = h.addressParam(c, "owner", &owner); !ok {
		return h.err(c, http.StatusBadRequest, "invalid owner", nil)
	}

	opts := h.Engine.Options()
	hookProgram := opts.HookProgramID
	if hookProgram, ok = h.addressParam(c, "hookProgramId", &hookProgram); !ok {
		return h.err(c, http.StatusBadRequest, "invalid hookProgramId", nil)
	}

	acc, err := hooks.DeriveExecuteAccounts(mint, owner, hookProgram, opts.Wrapped)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "cannot derive hook accounts", err.Error())
	}
	return c.JSON(http.StatusOK, HookAddressesResponse{
		Mint:            mint.String(),
		Owner:           owner.String(),
		HookProgram:     acc.HookProgram.String(),
		MetaList:        acc.MetaList.String(),
		WrappedMint:     acc.WrappedMint.String(),
		Delegate:        acc.Delegate.String(),
		DelegateWrapped: acc.DelegateWrapped.String(),
		SenderWrapped:   acc.SenderWrapped.String(),
	})
}

// MintsList returns every registered hooked mint.
func (h *Handlers) MintsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	items, err := h.Registry.ListMints(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list mints", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) MintsGet(c echo.Context) error {
	mint, err := pda.ParseAddress(c.Param("mint"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Registry.GetMint(ctx, mint)
	if errors.Is(err, registry.ErrNotFound) {
		return h.err(c, http.StatusNotFound, "mint not found", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get mint", err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

// MintsPut registers or replaces a mint's hook program.
func (h *Handlers) MintsPut(c echo.Context) error {
	mint, err := pda.ParseAddress(c.Param("mint"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", err.Error())
	}
	var req MintUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	meta := &registry.MintHookMeta{
		Mint:          mint,
		HookProgramID: req.HookProgramID,
		Name:          req.Name,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
	}
	if err := meta.Validate(); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint entry", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Registry.PutMint(ctx, meta); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to store mint", err.Error())
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handlers) MintsDelete(c echo.Context) error {
	mint, err := pda.ParseAddress(c.Param("mint"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Registry.DeleteMint(ctx, mint); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete mint", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// PoolsList returns every registered pool.
func (h *Handlers) PoolsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	items, err := h.Registry.ListPools(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list pools", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) PoolsGet(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	p, ok, err := h.lookupPool(c, ctx, c.Param("key"))
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handlers) PoolsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := registry.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Registry.DeletePool(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete pool", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// PoolsImport reads an on-chain pool config and registers the pool.
func (h *Handlers) PoolsImport(c echo.Context) error {
	var req PoolImportRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.MintX.IsZero() || req.MintY.IsZero() {
		return h.err(c, http.StatusBadRequest, "invalid mints", map[string]any{"mintX": "required", "mintY": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	p, err := h.Engine.ImportPool(ctx, req.Seed, req.MintX, req.MintY)
	if errors.Is(err, assembler.ErrPoolNotReady) {
		return h.err(c, http.StatusNotFound, "pool not found on-chain", err.Error())
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to import pool", err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// PoolsReserves reads a pool's live reserves without storing them.
func (h *Handlers) PoolsReserves(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, ok, err := h.lookupPool(c, ctx, c.Param("key"))
	if !ok {
		return err
	}
	res, err := h.Engine.ReadReserves(ctx, p)
	if errors.Is(err, assembler.ErrPoolNotReady) {
		return h.err(c, http.StatusNotFound, "pool vaults not found", err.Error())
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to read reserves", err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// PoolsRefresh re-reads and stores reserves for every registered pool.
func (h *Handlers) PoolsRefresh(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	n, err := h.Engine.RefreshReserves(ctx)
	metrics.ReserveRefreshes.Add(float64(n))
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to refresh reserves", err.Error())
	}
	return c.JSON(http.StatusOK, RefreshResponse{Updated: n})
}

// RecentExecutions returns finished executions, newest first.
// Accepts limit query parameter (default: 50, range: 1-500)
func (h *Handlers) RecentExecutions(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusServiceUnavailable, "history is not configured", nil)
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 500 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 500"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.History.Recent(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get executions", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates a switch with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate sets an existing switch addressed by path
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if errors.Is(err, flags.ErrNotFound) {
		return h.err(c, http.StatusNotFound, "flag not found", nil)
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// addressParam parses query parameter name. An empty value yields def, or
// fails when def is nil.
func (h *Handlers) addressParam(c echo.Context, name string, def *solana.PublicKey) (solana.PublicKey, bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		if def == nil {
			return solana.PublicKey{}, false
		}
		return *def, true
	}
	pk, err := pda.ParseAddress(v)
	if err != nil {
		return solana.PublicKey{}, false
	}
	return pk, true
}

// lookupPool fetches a pool by key. When ok is false the error response
// has already been written and err is what the handler returns.
func (h *Handlers) lookupPool(c echo.Context, ctx context.Context, key string) (*registry.PoolDescriptor, bool, error) {
	if err := registry.ValidateKey(key); err != nil {
		return nil, false, h.err(c, http.StatusBadRequest, "invalid pool key", nil)
	}
	p, err := h.Registry.GetPool(ctx, key)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, false, h.err(c, http.StatusNotFound, "pool not found", nil)
	}
	if err != nil {
		return nil, false, h.err(c, http.StatusInternalServerError, "failed to get pool", err.Error())
	}
	return p, true, nil
}

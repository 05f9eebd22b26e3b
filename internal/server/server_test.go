package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/history"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mintX = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintY = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	owner = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

type fakeEngine struct {
	mu       sync.Mutex
	reserves *registry.Reserves
	readErr  error
	runErr   error
	last     assembler.Intent
	prepared int
	executed int
}

func (f *fakeEngine) run(intent assembler.Intent, state assembler.State) (*assembler.Execution, error) {
	f.mu.Lock()
	f.last = intent
	f.mu.Unlock()
	exec := &assembler.Execution{ID: "exec_1", Intent: intent.Name(), Owner: owner, State: state}
	if f.runErr != nil {
		exec.State = assembler.Failed
		exec.Error = f.runErr.Error()
		return exec, f.runErr
	}
	return exec, nil
}

func (f *fakeEngine) Prepare(ctx context.Context, intent assembler.Intent) (*assembler.Execution, error) {
	f.prepared++
	return f.run(intent, assembler.Simulated)
}

func (f *fakeEngine) Execute(ctx context.Context, intent assembler.Intent) (*assembler.Execution, error) {
	f.executed++
	return f.run(intent, assembler.Confirmed)
}

func (f *fakeEngine) ReadReserves(ctx context.Context, p *registry.PoolDescriptor) (*registry.Reserves, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	r := *f.reserves
	return &r, nil
}

func (f *fakeEngine) RefreshReserves(ctx context.Context) (int, error) { return 2, nil }

func (f *fakeEngine) ImportPool(ctx context.Context, seed uint64, x, y solana.PublicKey) (*registry.PoolDescriptor, error) {
	if seed == 404 {
		return nil, assembler.ErrPoolNotReady
	}
	return testPool(seed)
}

func (f *fakeEngine) Options() assembler.Options { return assembler.DefaultOptions() }

func (f *fakeEngine) Owner() solana.PublicKey { return owner }

type fakeHistory struct{}

func (fakeHistory) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	return []*history.Record{{ExecutionID: "exec_1", Intent: "swap", State: "CONFIRMED"}}, nil
}

func testPool(seed uint64) (*registry.PoolDescriptor, error) {
	return registry.NewPoolDescriptor(registry.PoolParams{
		ProgramID:     constants.DefaultAMMProgramID,
		Seed:          seed,
		MintX:         mintX,
		MintY:         mintY,
		TokenProgramX: constants.TokenProgramID,
		TokenProgramY: constants.Token2022ProgramID,
	})
}

type harness struct {
	handler  http.Handler
	engine   *fakeEngine
	registry *registry.MemoryStore
}

func newHarness(t *testing.T, cfg ServerConfig, hist HistoryReader) *harness {
	t.Helper()
	store := registry.NewMemoryStore()
	p, err := testPool(42)
	require.NoError(t, err)
	require.NoError(t, store.PutPool(context.Background(), p))

	if cfg.IntentBurst == 0 {
		cfg.IntentBurst = 20
	}
	engine := &fakeEngine{reserves: &registry.Reserves{X: 1000, Y: 1000, LPSupply: 1000}}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{Engine: engine, Registry: store, History: hist, Logger: logger},
		Config:   cfg,
	})
	require.NoError(t, err)
	return &harness{handler: srv.Handler(), engine: engine, registry: store}
}

func (h *harness) do(t *testing.T, method, target, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	rec, body := h.do(t, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, owner.String(), body["owner"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAPIKey(t *testing.T) {
	h := newHarness(t, ServerConfig{APIKey: "secret"}, nil)

	rec, _ := h.do(t, http.MethodGet, "/v1/health", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/health", "", "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	rec, body := h.do(t, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestPoolAddresses(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	want, err := pda.Pool(constants.DefaultAMMProgramID, 7, mintX, mintY, constants.TokenProgramID, constants.TokenProgramID)
	require.NoError(t, err)

	rec, body := h.do(t, http.MethodGet, "/v1/addresses/pool?seed=7&mintX="+mintX.String()+"&mintY="+mintY.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want.Config.String(), body["config"])
	assert.Equal(t, want.VaultY.String(), body["vaultY"])
	assert.Equal(t, want.HookFeeVault.String(), body["hookFeeVault"])

	rec, _ = h.do(t, http.MethodGet, "/v1/addresses/pool?seed=-1&mintX="+mintX.String()+"&mintY="+mintY.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = h.do(t, http.MethodGet, "/v1/addresses/pool?seed=1&mintX="+mintX.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHookAddresses(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	metaList, err := pda.ExtraAccountMetas(mintY, constants.DefaultHookProgramID)
	require.NoError(t, err)

	rec, body := h.do(t, http.MethodGet, "/v1/addresses/hook?mint="+mintY.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, metaList.String(), body["extraAccountMetaList"])
	assert.Equal(t, owner.String(), body["owner"])
}

func TestQuoteSwap(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)

	rec, body := h.do(t, http.MethodGet, "/v1/quote/swap?pool=42&inputMint="+mintX.String()+"&amount=100", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["isX"])
	q := body["quote"].(map[string]any)
	assert.Equal(t, float64(90), q["amountOut"])
	assert.Equal(t, float64(constants.DefaultSlippageBps), q["slippageBps"])

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/swap?pool=42&inputMint="+owner.String()+"&amount=100", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/swap?pool=9&inputMint="+mintX.String()+"&amount=100", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/swap?pool=42&inputMint="+mintX.String()+"&amount=0", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/swap?pool=42&inputMint="+mintX.String()+"&amount=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.engine.readErr = assembler.ErrPoolNotReady
	rec, _ = h.do(t, http.MethodGet, "/v1/quote/swap?pool=42&inputMint="+mintX.String()+"&amount=100", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteDepositWithdraw(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)

	rec, body := h.do(t, http.MethodGet, "/v1/quote/deposit?pool=42&amountL=100&maxX=200&maxY=200", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := body["quote"].(map[string]any)
	assert.Equal(t, float64(100), q["amountX"])

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/deposit?pool=42&amountL=100&maxX=50&maxY=200", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = h.do(t, http.MethodGet, "/v1/quote/withdraw?pool=42&amountL=100", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q = body["quote"].(map[string]any)
	assert.Equal(t, float64(100), q["amountX"])
	assert.Equal(t, float64(99), q["minX"])

	rec, _ = h.do(t, http.MethodGet, "/v1/quote/withdraw?pool=42&amountL=5000", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRunIntent_Swap(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)

	body := `{"pool":"42","inputMint":"` + mintX.String() + `","amountIn":100,"collectHookFees":true}`
	rec, out := h.do(t, http.MethodPost, "/v1/intents/swap", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	exec := out["execution"].(map[string]any)
	assert.Equal(t, "CONFIRMED", exec["state"])
	assert.Equal(t, 1, h.engine.executed)

	swap, ok := h.engine.last.(*assembler.SwapIntent)
	require.True(t, ok)
	assert.Equal(t, "42", swap.PoolKey)
	assert.Equal(t, mintX, swap.InputMint)
	assert.Equal(t, uint64(100), swap.AmountIn)
	assert.Equal(t, constants.DefaultSlippageBps, swap.SlippageBps)
	assert.True(t, swap.CollectHookFees)
}

func TestRunIntent_DryRun(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)

	rec, out := h.do(t, http.MethodPost, "/v1/intents/withdraw?dryRun=true", `{"pool":"42","amountL":10,"slippageBps":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SIMULATED", out["execution"].(map[string]any)["state"])
	assert.Equal(t, 1, h.engine.prepared)
	assert.Equal(t, 0, h.engine.executed)

	w := h.engine.last.(*assembler.WithdrawIntent)
	assert.Equal(t, uint16(100), w.SlippageBps)
}

func TestRunIntent_Errors(t *testing.T) {
	h := newHarness(t, ServerConfig{DevMode: true}, nil)

	rec, _ := h.do(t, http.MethodPost, "/v1/intents/teleport", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/v1/intents/swap", `{"inputMint":"not-base58"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/v1/intents/swap?dryRun=maybe", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.engine.runErr = &assembler.StageError{
		Stage: assembler.StageSimulate,
		Kind:  assembler.KindSimulation,
		Err:   errors.New("custom program error: 0x1773"),
	}
	rec, out := h.do(t, http.MethodPost, "/v1/intents/deposit", `{"pool":"42","amountL":10,"maxX":1,"maxY":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "simulation", out["kind"])
	assert.Equal(t, "FAILED", out["execution"].(map[string]any)["state"])
}

func TestRunIntent_RateLimited(t *testing.T) {
	h := newHarness(t, ServerConfig{IntentRate: 0.01, IntentBurst: 1}, nil)

	rec, _ := h.do(t, http.MethodPost, "/v1/intents/enable_hooks", `{"pool":"42"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(t, http.MethodPost, "/v1/intents/enable_hooks", `{"pool":"42"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other routes are not limited
	rec, _ = h.do(t, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&assembler.StageError{Kind: assembler.KindValidation, Err: registry.ErrNotFound}, http.StatusNotFound},
		{&assembler.StageError{Kind: assembler.KindValidation, Err: assembler.ErrValidation}, http.StatusBadRequest},
		{&assembler.StageError{Kind: assembler.KindQuote}, http.StatusUnprocessableEntity},
		{&assembler.StageError{Kind: assembler.KindLedger}, http.StatusUnprocessableEntity},
		{&assembler.StageError{Kind: assembler.KindNetwork}, http.StatusBadGateway},
		{&assembler.StageError{Kind: assembler.KindTimeout}, http.StatusGatewayTimeout},
		{&assembler.StageError{Kind: assembler.KindCancelled}, http.StatusRequestTimeout},
		{&assembler.StageError{Kind: assembler.KindSigning}, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestMintsCRUD(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	path := "/v1/mints/" + mintY.String()

	rec, _ := h.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := h.do(t, http.MethodPut, path, `{"hookProgramId":"`+constants.DefaultHookProgramID.String()+`","symbol":"HOOK","decimals":9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "HOOK", body["symbol"])

	rec, body = h.do(t, http.MethodGet, "/v1/mints", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)

	rec, _ = h.do(t, http.MethodPut, path, `{"symbol":"NOHOOK"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/v1/mints/zzz", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPools(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)

	rec, body := h.do(t, http.MethodGet, "/v1/pools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)

	rec, body = h.do(t, http.MethodGet, "/v1/pools/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", body["id"])

	rec, body = h.do(t, http.MethodGet, "/v1/pools/42/reserves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1000), body["lpSupply"])

	rec, body = h.do(t, http.MethodPost, "/v1/pools/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["updated"])

	rec, body = h.do(t, http.MethodPost, "/v1/pools/import", `{"seed":7,"mintX":"`+mintX.String()+`","mintY":"`+mintY.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "7", body["id"])

	rec, _ = h.do(t, http.MethodPost, "/v1/pools/import", `{"seed":404,"mintX":"`+mintX.String()+`","mintY":"`+mintY.String()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/v1/pools/import", `{"seed":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodDelete, "/v1/pools/42", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = h.do(t, http.MethodGet, "/v1/pools/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentExecutions(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	rec, _ := h.do(t, http.MethodGet, "/v1/executions/recent", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newHarness(t, ServerConfig{}, fakeHistory{})
	rec, body := h.do(t, http.MethodGet, "/v1/executions/recent?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)

	rec, _ = h.do(t, http.MethodGet, "/v1/executions/recent?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlags_NotConfigured(t *testing.T) {
	h := newHarness(t, ServerConfig{}, nil)
	rec, _ := h.do(t, http.MethodGet, "/v1/flags", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

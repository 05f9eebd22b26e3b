package server

import (
	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/gagliardetto/solana-go"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK          bool   `json:"ok"`
	Owner       string `json:"owner"`
	AMM         string `json:"ammProgramId"`
	Hook        string `json:"hookProgramId"`
	WrappedMint string `json:"wrappedSolMint"`
}

// PoolAddressesResponse lists every account derived from a pool seed.
type PoolAddressesResponse struct {
	ProgramID    string `json:"programId"`
	Seed         uint64 `json:"seed"`
	Config       string `json:"config"`
	LPMint       string `json:"lpMint"`
	SolVault     string `json:"solVault"`
	HookFeeVault string `json:"hookFeeVault"`
	VaultX       string `json:"vaultX"`
	VaultY       string `json:"vaultY"`
}

// HookAddressesResponse lists the extra accounts a hooked transfer reads.
type HookAddressesResponse struct {
	Mint            string `json:"mint"`
	Owner           string `json:"owner"`
	HookProgram     string `json:"hookProgramId"`
	MetaList        string `json:"extraAccountMetaList"`
	WrappedMint     string `json:"wrappedMint"`
	Delegate        string `json:"delegate"`
	DelegateWrapped string `json:"delegateWrappedAccount"`
	SenderWrapped   string `json:"senderWrappedAccount"`
}

// MintUpsertRequest registers a hook program for a mint.
type MintUpsertRequest struct {
	HookProgramID solana.PublicKey `json:"hookProgramId"`
	Name          string           `json:"name"`
	Symbol        string           `json:"symbol"`
	Decimals      *uint8           `json:"decimals"`
}

// PoolImportRequest registers a pool that already exists on-chain.
type PoolImportRequest struct {
	Seed  uint64           `json:"seed"`
	MintX solana.PublicKey `json:"mintX"`
	MintY solana.PublicKey `json:"mintY"`
}

// RefreshResponse reports a reserve refresh.
type RefreshResponse struct {
	Updated int `json:"updated"`
}

// FlagUpsertRequest represents a request to create or update a switch
type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// FlagUpdateRequest represents a request to update an existing switch
type FlagUpdateRequest struct {
	Value bool `json:"value"`
}

// IntentResponse is returned by the intent endpoints whether the pipeline
// finished or not; Execution records how far it got.
type IntentResponse struct {
	Execution *assembler.Execution `json:"execution"`
	Error     string               `json:"error,omitempty"`
	Kind      string               `json:"kind,omitempty"`
	Mint      string               `json:"mint,omitempty"`
}

// Intent request bodies. Omitted slippage uses the default.

type InitializeRequest struct {
	Seed        uint64           `json:"seed"`
	MintX       solana.PublicKey `json:"mintX"`
	MintY       solana.PublicKey `json:"mintY"`
	FeeBps      uint16           `json:"feeBps"`
	Authority   solana.PublicKey `json:"authority"`
	NoAuthority bool             `json:"noAuthority"`
}

type DepositRequest struct {
	Pool    string `json:"pool"`
	AmountL uint64 `json:"amountL"`
	MaxX    uint64 `json:"maxX"`
	MaxY    uint64 `json:"maxY"`
}

type SwapRequest struct {
	Pool             string           `json:"pool"`
	InputMint        solana.PublicKey `json:"inputMint"`
	AmountIn         uint64           `json:"amountIn"`
	SlippageBps      *uint16          `json:"slippageBps"`
	CollectHookFees  bool             `json:"collectHookFees"`
	HookFeeAllowance uint64           `json:"hookFeeAllowance"`
}

type WithdrawRequest struct {
	Pool        string  `json:"pool"`
	AmountL     uint64  `json:"amountL"`
	MinX        uint64  `json:"minX"`
	MinY        uint64  `json:"minY"`
	SlippageBps *uint16 `json:"slippageBps"`
}

type EnableHooksRequest struct {
	Pool string `json:"pool"`
}

type CreateMintRequest struct {
	Decimals      uint8            `json:"decimals"`
	Amount        uint64           `json:"amount"`
	HookProgramID solana.PublicKey `json:"hookProgramId"`
	Name          string           `json:"name"`
	Symbol        string           `json:"symbol"`
	InitMetaList  bool             `json:"initMetaList"`
}

type CustodialPoolRequest struct {
	MintX   solana.PublicKey `json:"mintX"`
	MintY   solana.PublicKey `json:"mintY"`
	AmountX uint64           `json:"amountX"`
	AmountY uint64           `json:"amountY"`
	FeeBps  uint16           `json:"feeBps"`
}

type DirectSwapRequest struct {
	Pool             string           `json:"pool"`
	InputMint        solana.PublicKey `json:"inputMint"`
	AmountIn         uint64           `json:"amountIn"`
	SlippageBps      *uint16          `json:"slippageBps"`
	HookFeeAllowance uint64           `json:"hookFeeAllowance"`
}

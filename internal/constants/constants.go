package constants

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Program addresses
var (
	// AMM program as declared by the on-chain crate.
	DefaultAMMProgramID = solana.MustPublicKeyFromBase58("AwovFVc8D64taLRrHjmg4ZeNSh6xnZGTbd2Arv6kbcwd")
	// Transfer-hook program that charges a wrapped-SOL fee per transfer.
	DefaultHookProgramID = solana.MustPublicKeyFromBase58("88CNX3Y7TyzjPtD76YhpmnPAsrmhSsYRVS5ad2wKMjuk")

	TokenProgramID           = solana.TokenProgramID
	Token2022ProgramID       = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID          = solana.SystemProgramID

	// Wrapped SOL under the legacy token program.
	NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	// Wrapped SOL under Token-2022.
	NativeMint2022 = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

// PDA seed prefixes shared with the settlement programs
const (
	SeedConfig            = "config"
	SeedLP                = "lp"
	SeedSolVault          = "sol_vault"
	SeedHookFees          = "hook_fees"
	SeedExtraAccountMetas = "extra-account-metas"
	SeedDelegate          = "delegate"
)

// Amounts and limits
const (
	BpsDenominator = 10_000

	// LP supply minted on the first deposit into an empty pool.
	InitialLPSupply uint64 = 100_000_000_000

	// Wrapped SOL kept in the user's account when hook fees are collected.
	MinHookFeeLamports uint64 = 1_000

	// Transfer hook charges amount/HookFeeDivisor in wrapped SOL.
	HookFeeDivisor = 1_000

	DefaultComputeUnitLimit uint32 = 500_000
	DefaultFeeBps           uint16 = 30
	DefaultSlippageBps      uint16 = 50
)

// Redis keys
const (
	RedisKeyMintPrefix = "registry:mint:"
	RedisKeyMintIndex  = "registry:mints"
	RedisKeyPoolPrefix = "registry:pool:"
	RedisKeyPoolIndex  = "registry:pools"

	RedisKeyFlagPrefix = "amm:flags:"
	RedisKeyFlagIndex  = "amm:flags:index"
)

// Redis Pub/Sub channels
const (
	PubSubChannelExecutions       = "amm:executions"
	PubSubChannelExecutionsIntent = "amm:executions:intent:"
	PubSubChannelExecutionsState  = "amm:executions:state:"
)

// Local registry document keys
const (
	RegistryKeyMints = "hook_demo_mints"
	RegistryKeyPools = "hook_demo_pools"
)

// Timeouts
const (
	DefaultConfirmTimeout = 60 * time.Second
	ConfirmPollMin        = 500 * time.Millisecond
	ConfirmPollMax        = 4 * time.Second
)

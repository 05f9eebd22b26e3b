package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/gagliardetto/solana-go"
)

// Registry backends
const (
	RegistryMemory = "memory"
	RegistryFile   = "file"
	RegistryRedis  = "redis"
)

type Config struct {
	// RPC settings
	RPCUrl string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Wallet
	WalletPrivateKey string
	WalletCommitment string
	ConfirmTimeout   time.Duration

	// Programs
	AMMProgramID           string
	HookProgramID          string
	AMMTokenProgram        string
	WrappedSOLMint         string
	WrappedSOLTokenProgram string

	// Pipeline policy
	RequireSimulation bool
	ComputeUnitLimit  int
	ComputeUnitPrice  int

	// Registry
	RegistryBackend string
	RegistryPath    string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP facade
	APIAddr string
	APIKey  string
	DevMode bool

	LogLevel string
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", "http://127.0.0.1:8899"),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),

		// Wallet
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
		WalletCommitment: getEnv("WALLET_COMMITMENT", "confirmed"),
		ConfirmTimeout:   getDurationEnv("CONFIRM_TIMEOUT", constants.DefaultConfirmTimeout),

		// Programs
		AMMProgramID:           getEnv("AMM_PROGRAM_ID", constants.DefaultAMMProgramID.String()),
		HookProgramID:          getEnv("HOOK_PROGRAM_ID", constants.DefaultHookProgramID.String()),
		AMMTokenProgram:        getEnv("AMM_TOKEN_PROGRAM", constants.TokenProgramID.String()),
		WrappedSOLMint:         getEnv("WRAPPED_SOL_MINT", constants.NativeMint2022.String()),
		WrappedSOLTokenProgram: getEnv("WRAPPED_SOL_TOKEN_PROGRAM", constants.Token2022ProgramID.String()),

		// Pipeline
		RequireSimulation: getBoolEnv("REQUIRE_SIMULATION", true),
		ComputeUnitLimit:  getIntEnv("COMPUTE_UNIT_LIMIT", int(constants.DefaultComputeUnitLimit)),
		ComputeUnitPrice:  getIntEnv("COMPUTE_UNIT_PRICE", 0),

		// Registry
		RegistryBackend: strings.ToLower(getEnv("REGISTRY_BACKEND", RegistryFile)),
		RegistryPath:    getEnv("REGISTRY_PATH", "hook-registry.json"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "amm"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8080"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks values that would otherwise fail deep inside a pipeline.
// The wallet key is checked by the binaries that need one.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.ComputeUnitLimit <= 0 || c.ComputeUnitLimit > 1_400_000 {
		return fmt.Errorf("COMPUTE_UNIT_LIMIT must be in (0, 1400000]")
	}
	if c.ComputeUnitPrice < 0 {
		return fmt.Errorf("COMPUTE_UNIT_PRICE must be >= 0")
	}

	for key, val := range map[string]string{
		"AMM_PROGRAM_ID":            c.AMMProgramID,
		"HOOK_PROGRAM_ID":           c.HookProgramID,
		"AMM_TOKEN_PROGRAM":         c.AMMTokenProgram,
		"WRAPPED_SOL_MINT":          c.WrappedSOLMint,
		"WRAPPED_SOL_TOKEN_PROGRAM": c.WrappedSOLTokenProgram,
	} {
		if _, err := solana.PublicKeyFromBase58(val); err != nil {
			return fmt.Errorf("%s: invalid address %q: %w", key, val, err)
		}
	}

	switch c.WalletCommitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("WALLET_COMMITMENT must be processed, confirmed or finalized")
	}

	switch c.RegistryBackend {
	case RegistryMemory:
	case RegistryFile:
		if strings.TrimSpace(c.RegistryPath) == "" {
			return fmt.Errorf("REGISTRY_PATH is required for the file registry")
		}
	case RegistryRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis registry")
		}
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be memory, file or redis, got %q", c.RegistryBackend)
	}

	return nil
}

// ValidateServer is Validate plus the checks only the HTTP API needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.DevMode && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required unless DEV_MODE=true")
	}
	return nil
}

// MustKey parses an address already checked by Validate.
func MustKey(s string) solana.PublicKey {
	return solana.MustPublicKeyFromBase58(s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

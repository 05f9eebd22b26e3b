// Package app wires configuration into the collaborators the binaries
// share: RPC client, wallet, registry, assembler and the optional
// history, pub/sub and switch backends.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/config"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/flags"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/history"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/metrics"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/wallet"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads .env from the project root, falling back to the process
// environment.
func LoadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// NewLogger returns the text logger every binary uses.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// App holds the wired collaborators. Optional parts are nil when their
// backend is not configured or not reachable.
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	RPC       *rpc.Client
	Wallet    *wallet.Wallet
	Registry  registry.Store
	Assembler *assembler.Assembler

	History  *history.ClickHouseStore
	PubSub   *history.PubSub
	Flags    *flags.Store
	recorder *history.Recorder
}

// Options selects which optional backends New attempts.
type Options struct {
	History bool // ClickHouse sink, when CLICKHOUSE_ADDR is set
	Events  bool // Redis pub/sub and pause switches
}

// New builds an App from cfg. The wallet key is required.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts Options) (*App, error) {
	client := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{
		PrivateKey:        cfg.WalletPrivateKey,
		DefaultCommitment: cfg.WalletCommitment,
		ConfirmTimeout:    cfg.ConfirmTimeout,
	}, client)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}

	store, err := openRegistry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	asm, err := assembler.New(client, w, store, AssemblerOptions(cfg), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	asm.WithObserver(metrics.Observer{})

	a := &App{
		Config:    cfg,
		Logger:    logger,
		RPC:       client,
		Wallet:    w,
		Registry:  store,
		Assembler: asm,
	}

	if opts.History && cfg.ClickHouseAddr != "" {
		ch, err := history.NewClickHouseStore(ctx, history.ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			logger.WithError(err).Warn("execution history disabled")
		} else {
			a.History = ch
		}
	}

	if opts.Events {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rclient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("redis unreachable, execution events and pause switches disabled")
			_ = rclient.Close()
		} else {
			a.PubSub = history.NewPubSub(rclient, logger)
			if a.Flags, err = flags.NewStore(rclient); err != nil {
				a.release()
				return nil, err
			}
		}
	}

	// typed nils must not reach the recorder's interfaces
	var (
		sink history.Sink
		pub  history.Publisher
	)
	if a.History != nil {
		sink = a.History
	}
	if a.PubSub != nil {
		pub = a.PubSub
	}
	if sink != nil || pub != nil {
		a.recorder = history.NewRecorder(sink, pub, logger)
		asm.WithObserver(a.recorder)
	}

	logger.WithFields(logrus.Fields{
		"owner":    w.Address(),
		"rpc":      cfg.RPCUrl,
		"registry": cfg.RegistryBackend,
		"history":  a.History != nil,
		"events":   a.PubSub != nil,
	}).Info("engine ready")
	return a, nil
}

// AssemblerOptions maps configuration onto pipeline options. Addresses
// must already have passed cfg.Validate.
func AssemblerOptions(cfg *config.Config) assembler.Options {
	return assembler.Options{
		AMMProgramID:    config.MustKey(cfg.AMMProgramID),
		HookProgramID:   config.MustKey(cfg.HookProgramID),
		AMMTokenProgram: config.MustKey(cfg.AMMTokenProgram),
		Wrapped: hooks.Wrapped{
			Mint:         config.MustKey(cfg.WrappedSOLMint),
			TokenProgram: config.MustKey(cfg.WrappedSOLTokenProgram),
		},
		Commitment:        cfg.WalletCommitment,
		RequireSimulation: cfg.RequireSimulation,
		ComputeUnitLimit:  uint32(cfg.ComputeUnitLimit),
		ComputeUnitPrice:  uint64(cfg.ComputeUnitPrice),
	}
}

func openRegistry(ctx context.Context, cfg *config.Config) (registry.Store, error) {
	switch cfg.RegistryBackend {
	case config.RegistryMemory:
		return registry.NewMemoryStore(), nil
	case config.RegistryFile:
		return registry.NewFileStore(cfg.RegistryPath)
	case config.RegistryRedis:
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			_ = rclient.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return registry.NewRedisStore(rclient)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
	}
}

// release closes what New opened before the recorder took ownership of
// the history sink and publisher.
func (a *App) release() {
	if a.PubSub != nil {
		if err := a.PubSub.Close(); err != nil {
			a.Logger.WithError(err).Warn("redis close failed")
		}
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.WithError(err).Warn("history close failed")
		}
	}
	if err := a.Registry.Close(); err != nil {
		a.Logger.WithError(err).Warn("registry close failed")
	}
}

// Close releases every backend. Errors are logged.
func (a *App) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.Logger.WithError(err).Warn("history close failed")
		}
	}
	if err := a.Registry.Close(); err != nil {
		a.Logger.WithError(err).Warn("registry close failed")
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/app"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/config"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "Operate constant-product pools with transfer-hooked tokens",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")

	root.AddCommand(deriveCmd())
	root.AddCommand(quoteCmd())
	root.AddCommand(intentCmds()...)
	root.AddCommand(refreshCmd())
	root.AddCommand(importPoolCmd())
	root.AddCommand(airdropCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment. The root --log-level flag
// overrides LOG_LEVEL.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	logger := app.NewLogger("info")
	app.LoadEnv(logger)

	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return cfg, logger, nil
}

// bootstrap builds the engine for one command run. Callers own Close.
func bootstrap(ctx context.Context, cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger, opts)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keyFlag(cmd *cobra.Command, name string, required bool) (solana.PublicKey, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		if required {
			return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
		}
		return solana.PublicKey{}, nil
	}
	pk, err := pda.ParseAddress(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}

// amountFlag reads a raw amount, or a human amount scaled by the mint's
// decimals when --ui is set.
func amountFlag(ctx context.Context, cmd *cobra.Command, a *app.App, name string, mint solana.PublicKey) (uint64, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return 0, fmt.Errorf("--%s is required", name)
	}
	ui, _ := cmd.Flags().GetBool("ui")
	if !ui {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("--%s: %w", name, err)
		}
		return n, nil
	}
	info, err := a.Assembler.Detector().Detect(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("read decimals of %s: %w", mint, err)
	}
	return pricing.ToRaw(v, info.Decimals)
}

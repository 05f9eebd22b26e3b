// Package assembler turns user intents into signed, simulated and
// confirmed AMM transactions. Each intent runs as one sequential
// pipeline: quote, build, simulate, sign, submit, confirm.
package assembler

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/provision"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/simulate"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/tokenstd"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/sirupsen/logrus"
)

// Ledger is the set of node reads the assembler and its collaborators
// perform.
type Ledger interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment string) (*rpc.AccountInfo, error)
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey, commitment string) ([]*rpc.AccountInfo, error)
	GetLatestBlockhash(ctx context.Context, commitment string) (*rpc.Blockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.SimulateOptions) (*rpc.SimulationValue, error)
}

// Wallet signs and submits on behalf of the owner.
type Wallet interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction, coSigners ...solana.PrivateKey) error
	SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// Observer is told about state changes and finished executions. Calls are
// best effort and must not block the pipeline for long.
type Observer interface {
	OnTransition(exec *Execution, from, to State)
	OnFinish(ctx context.Context, exec *Execution)
}

// Options configures program ids and pipeline policy.
type Options struct {
	AMMProgramID  solana.PublicKey
	HookProgramID solana.PublicKey
	// Token program named in AMM instructions; it owns the LP mint.
	AMMTokenProgram solana.PublicKey
	Wrapped         hooks.Wrapped
	Commitment      string

	RequireSimulation bool
	ComputeUnitLimit  uint32
	// Micro-lamports per compute unit; zero adds no price instruction.
	ComputeUnitPrice uint64
}

// DefaultOptions targets the default programs with simulation on.
func DefaultOptions() Options {
	return Options{
		AMMProgramID:      constants.DefaultAMMProgramID,
		HookProgramID:     constants.DefaultHookProgramID,
		AMMTokenProgram:   constants.TokenProgramID,
		Wrapped:           hooks.DefaultWrapped,
		Commitment:        rpc.CommitmentConfirmed,
		RequireSimulation: true,
		ComputeUnitLimit:  constants.DefaultComputeUnitLimit,
	}
}

// Assembler owns the collaborators every intent pipeline uses. It holds no
// per-intent state and is safe for concurrent Execute calls.
type Assembler struct {
	ledger      Ledger
	wallet      Wallet
	registry    registry.Store
	detector    *tokenstd.Detector
	resolver    *hooks.Resolver
	provisioner *provision.Provisioner
	simulator   *simulate.Simulator
	observers   []Observer
	opts        Options
	logger      *logrus.Logger
}

func New(ledger Ledger, w Wallet, store registry.Store, opts Options, logger *logrus.Logger) (*Assembler, error) {
	if ledger == nil || w == nil || store == nil {
		return nil, fmt.Errorf("assembler: ledger, wallet and registry are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	def := DefaultOptions()
	if opts.AMMProgramID.IsZero() {
		opts.AMMProgramID = def.AMMProgramID
	}
	if opts.HookProgramID.IsZero() {
		opts.HookProgramID = def.HookProgramID
	}
	if opts.AMMTokenProgram.IsZero() {
		opts.AMMTokenProgram = def.AMMTokenProgram
	}
	if opts.Wrapped.Mint.IsZero() {
		opts.Wrapped = def.Wrapped
	}
	if opts.Commitment == "" {
		opts.Commitment = def.Commitment
	}

	return &Assembler{
		ledger:      ledger,
		wallet:      w,
		registry:    store,
		detector:    tokenstd.NewDetector(ledger, opts.Commitment, logger),
		resolver:    hooks.NewResolver(store, logger),
		provisioner: provision.NewProvisioner(ledger, opts.Wrapped.Mint, opts.Wrapped.TokenProgram, opts.Commitment, logger),
		simulator:   simulate.NewSimulator(ledger, opts.AMMProgramID, opts.Commitment, logger),
		opts:        opts,
		logger:      logger,
	}, nil
}

// WithObserver registers an observer for every later execution.
func (a *Assembler) WithObserver(o Observer) *Assembler {
	if o != nil {
		a.observers = append(a.observers, o)
	}
	return a
}

// Options returns the effective configuration.
func (a *Assembler) Options() Options { return a.opts }

// Registry is the store intents read and write.
func (a *Assembler) Registry() registry.Store { return a.registry }

// Resolver is the hook resolver shared by all intents.
func (a *Assembler) Resolver() *hooks.Resolver { return a.resolver }

// Detector is the token-standard detector shared by all intents.
func (a *Assembler) Detector() *tokenstd.Detector { return a.detector }

// Owner is the wallet that signs and pays.
func (a *Assembler) Owner() solana.PublicKey { return a.wallet.PublicKey() }

// Prepare runs an intent through quote, build and (when required)
// simulation without signing or submitting it.
func (a *Assembler) Prepare(ctx context.Context, intent Intent) (*Execution, error) {
	exec := newExecution(intent.Name(), a.wallet.PublicKey(), observers(a.observers))
	_, err := a.prepare(ctx, intent, exec)
	if err != nil {
		a.finish(ctx, exec)
		return exec, err
	}
	return exec, nil
}

// Execute runs an intent through the whole pipeline. The returned
// execution is always non-nil and records how far it got.
func (a *Assembler) Execute(ctx context.Context, intent Intent) (*Execution, error) {
	exec := newExecution(intent.Name(), a.wallet.PublicKey(), observers(a.observers))
	defer a.finish(ctx, exec)

	b, err := a.prepare(ctx, intent, exec)
	if err != nil {
		return exec, err
	}

	// sign
	if err := ctx.Err(); err != nil {
		return exec, exec.fail(StageSign, err)
	}
	if err := a.wallet.Sign(exec.Tx, b.coSigners...); err != nil {
		return exec, exec.fail(StageSign, err)
	}
	if err := exec.Advance(Signed); err != nil {
		return exec, exec.fail(StageSign, err)
	}

	// submit
	if err := ctx.Err(); err != nil {
		return exec, exec.fail(StageSubmit, err)
	}
	sig, err := a.wallet.SendTx(ctx, exec.Tx)
	if err != nil {
		pattern, ok := simulate.PartialSuccess(err)
		if !ok || len(exec.Tx.Signatures) == 0 {
			return exec, exec.fail(StageSubmit, err)
		}
		sig = exec.Tx.Signatures[0]
		exec.warn(fmt.Sprintf("submit: %s: %v", pattern, err))
		a.logger.WithFields(logrus.Fields{
			"execution": exec.ID,
			"pattern":   pattern,
			"error":     err,
		}).Warn("submission reported an already satisfied step")
	}
	exec.Signature = sig
	if err := exec.Advance(Submitted); err != nil {
		return exec, exec.fail(StageSubmit, err)
	}

	// confirm
	if err := a.wallet.ConfirmTransaction(ctx, sig); err != nil {
		return exec, exec.fail(StageConfirm, err)
	}
	if err := exec.Advance(Confirmed); err != nil {
		return exec, exec.fail(StageConfirm, err)
	}

	if b.onConfirmed != nil {
		if err := b.onConfirmed(ctx); err != nil {
			exec.warn(fmt.Sprintf("record: %v", err))
			a.logger.WithFields(logrus.Fields{
				"execution": exec.ID,
				"error":     err,
			}).Warn("confirmed but registry update failed")
		}
	}

	a.logger.WithFields(logrus.Fields{
		"execution": exec.ID,
		"intent":    exec.Intent,
		"signature": sig.String(),
		"duration":  exec.Duration(),
	}).Info("intent confirmed")

	return exec, nil
}

func (a *Assembler) prepare(ctx context.Context, intent Intent, exec *Execution) (*bundle, error) {
	// quote
	if err := ctx.Err(); err != nil {
		return nil, exec.fail(StageQuote, err)
	}
	if err := intent.quote(ctx, a, exec); err != nil {
		return nil, exec.fail(StageQuote, err)
	}
	if err := exec.Advance(Quoted); err != nil {
		return nil, exec.fail(StageQuote, err)
	}

	// build
	if err := ctx.Err(); err != nil {
		return nil, exec.fail(StageBuild, err)
	}
	b, err := intent.build(ctx, a, exec)
	if err != nil {
		return nil, exec.fail(StageBuild, err)
	}
	if err := a.compile(ctx, exec, b); err != nil {
		return nil, exec.fail(StageBuild, err)
	}
	if err := exec.Advance(Built); err != nil {
		return nil, exec.fail(StageBuild, err)
	}

	// simulate
	if !a.opts.RequireSimulation {
		a.logger.WithField("execution", exec.ID).Warn("simulation disabled, submitting unchecked bundle")
		return b, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, exec.fail(StageSimulate, err)
	}
	report, err := a.simulator.Simulate(ctx, exec.Tx)
	if err != nil {
		return nil, exec.fail(StageSimulate, err)
	}
	exec.Logs = report.Logs
	exec.Units = report.UnitsConsumed
	if err := exec.Advance(Simulated); err != nil {
		return nil, exec.fail(StageSimulate, err)
	}
	return b, nil
}

// compile prefixes the compute budget and wraps the instructions into a
// transaction paid by the wallet.
func (a *Assembler) compile(ctx context.Context, exec *Execution, b *bundle) error {
	if len(b.instructions) == 0 {
		return fmt.Errorf("%w: intent produced no instructions", ErrValidation)
	}

	var ixs []solana.Instruction
	if a.opts.ComputeUnitLimit > 0 {
		ix, err := computebudget.NewSetComputeUnitLimitInstruction(a.opts.ComputeUnitLimit).ValidateAndBuild()
		if err != nil {
			return fmt.Errorf("compute unit limit: %w", err)
		}
		ixs = append(ixs, ix)
	}
	if a.opts.ComputeUnitPrice > 0 {
		ix, err := computebudget.NewSetComputeUnitPriceInstruction(a.opts.ComputeUnitPrice).ValidateAndBuild()
		if err != nil {
			return fmt.Errorf("compute unit price: %w", err)
		}
		ixs = append(ixs, ix)
	}
	ixs = append(ixs, b.instructions...)

	bh, err := a.ledger.GetLatestBlockhash(ctx, a.opts.Commitment)
	if err != nil {
		return err
	}
	tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(a.wallet.PublicKey()))
	if err != nil {
		return fmt.Errorf("build transaction: %w", err)
	}

	exec.Instructions = ixs
	exec.Tx = tx
	return nil
}

func (a *Assembler) finish(ctx context.Context, exec *Execution) {
	if !exec.State.Terminal() {
		return
	}
	for _, o := range a.observers {
		o.OnFinish(ctx, exec)
	}
}

// pool loads a registered pool.
func (a *Assembler) pool(ctx context.Context, key string) (*registry.PoolDescriptor, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: pool key is required", ErrValidation)
	}
	p, err := a.registry.GetPool(ctx, key)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) || errors.Is(err, registry.ErrInvalidKey) {
			return nil, fmt.Errorf("%w: pool %q: %w", ErrValidation, key, err)
		}
		return nil, err
	}
	return p, nil
}

type observers []Observer

func (o observers) OnTransition(exec *Execution, from, to State) {
	for _, ob := range o {
		ob.OnTransition(exec, from, to)
	}
}

func (o observers) OnFinish(ctx context.Context, exec *Execution) {}

package assembler

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/simulate"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/wallet"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swapIntent() *SwapIntent {
	return &SwapIntent{PoolKey: "42", InputMint: mintX, AmountIn: 100, SlippageBps: 50}
}

func TestExecute_Swap(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.asm.WithObserver(rec)

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	require.NoError(t, err)

	assert.Equal(t, Confirmed, exec.State)
	assert.Equal(t, []State{Pending, Quoted, Built, Simulated, Signed, Submitted, Confirmed}, states(exec))
	assert.Equal(t, []State{Quoted, Built, Simulated, Signed, Submitted, Confirmed}, rec.transitions)
	assert.Equal(t, 1, rec.finished)
	assert.Equal(t, exec.Tx.Signatures[0], exec.Signature)
	assert.Equal(t, uint64(4200), exec.Units)
	assert.Empty(t, exec.Warnings)

	q, ok := exec.Quote.(*pricing.Quote)
	require.True(t, ok)
	assert.Equal(t, uint64(90), q.AmountOut)
	assert.Equal(t, uint64(89), q.MinOut)

	ixs := exec.Instructions
	require.Len(t, ixs, 5)
	assert.Equal(t, computebudget.ProgramID, ixs[0].ProgramID())
	for _, ix := range ixs[1:4] {
		assert.Equal(t, constants.AssociatedTokenProgramID, ix.ProgramID())
	}

	swap := ixs[4]
	assert.Equal(t, constants.DefaultAMMProgramID, swap.ProgramID())
	data := ixData(t, swap)
	require.Len(t, data, 25)
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, byte(1), data[16])
	assert.Equal(t, uint64(89), binary.LittleEndian.Uint64(data[17:25]))

	accs := swap.Accounts()
	require.Len(t, accs, 14)
	hook := accs[len(accs)-1]
	assert.Equal(t, constants.DefaultHookProgramID, hook.PublicKey)
	assert.False(t, hook.IsSigner || hook.IsWritable)

	assert.Equal(t, 1, f.ledger.simulated)
	assert.Equal(t, 1, f.wallet.signed)
	assert.Equal(t, 1, f.wallet.sent)
	assert.Equal(t, 1, f.wallet.confirmed)
}

func TestExecute_SimulationFailureNeverSubmits(t *testing.T) {
	f := newFixture(t)
	f.ledger.sim = `{"err":{"InstructionError":[4,{"Custom":6003}]},"logs":["Program log: Instruction: Swap","Program log: Error: SlippageExceded"],"unitsConsumed":5100}`

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageSimulate, se.Stage)
	assert.Equal(t, KindSimulation, se.Kind)

	var fe *simulate.FailedError
	require.True(t, errors.As(err, &fe))
	require.NotNil(t, fe.ProgramError)
	assert.Equal(t, "SlippageExceded", fe.ProgramError.Name)

	assert.Equal(t, Failed, exec.State)
	assert.Equal(t, []string{"Program log: Instruction: Swap", "Program log: Error: SlippageExceded"}, exec.Logs)
	assert.Equal(t, uint64(5100), exec.Units)
	assert.Zero(t, f.wallet.signed)
	assert.Zero(t, f.wallet.sent)
}

func TestExecute_SimulationTransportErrorIsNetwork(t *testing.T) {
	f := newFixture(t)
	f.ledger.simErr = &rpc.NetworkError{Method: "simulateTransaction", Err: errors.New("connection refused")}

	_, err := f.asm.Execute(context.Background(), swapIntent())
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageSimulate, se.Stage)
	assert.Equal(t, KindNetwork, se.Kind)
	assert.Zero(t, f.wallet.sent)
}

func TestExecute_SlippageRejectedAtQuote(t *testing.T) {
	f := newFixture(t)

	intent := swapIntent()
	intent.SlippageBps = 10_000
	exec, err := f.asm.Execute(context.Background(), intent)
	require.Error(t, err)
	assert.ErrorIs(t, err, pricing.ErrMinOutIsZero)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageQuote, se.Stage)
	assert.Equal(t, KindQuote, se.Kind)
	assert.Nil(t, exec.Instructions)
	assert.Zero(t, f.ledger.simulated)

	// x needs 100 for 100 lp at 1000/1000/1000
	exec, err = f.asm.Execute(context.Background(), &DepositIntent{PoolKey: "42", AmountL: 100, MaxX: 50, MaxY: 200})
	assert.ErrorIs(t, err, pricing.ErrSlippageExceeded)
	assert.Nil(t, exec.Instructions)
	assert.Equal(t, Failed, exec.State)
}

func TestPrepare_HookAccountsAreAdditive(t *testing.T) {
	ctx := context.Background()
	hooked := newFixture(t)
	plain := newFixture(t)
	require.NoError(t, plain.store.DeleteMint(ctx, mintY))
	// same wallet so every derived account matches
	plain.wallet.key = hooked.wallet.key

	withHook, err := hooked.asm.Prepare(ctx, swapIntent())
	require.NoError(t, err)
	without, err := plain.asm.Prepare(ctx, swapIntent())
	require.NoError(t, err)

	a := withHook.Instructions[len(withHook.Instructions)-1]
	b := without.Instructions[len(without.Instructions)-1]
	assert.Equal(t, ixData(t, b), ixData(t, a))
	require.Len(t, a.Accounts(), len(b.Accounts())+1)
	assert.Equal(t, b.Accounts(), a.Accounts()[:len(b.Accounts())])
	assert.Equal(t, constants.DefaultHookProgramID, a.Accounts()[len(b.Accounts())].PublicKey)

	// on-chain hook without a registration is reported, not fatal
	assert.NotEmpty(t, without.Warnings)
	assert.Equal(t, Simulated, withHook.State)
	assert.Zero(t, hooked.wallet.signed)
}

func TestExecute_PartialSuccessSubmit(t *testing.T) {
	f := newFixture(t)
	f.wallet.sendErr = &rpc.RPCError{Code: -32002, Message: "Transaction simulation failed: This transaction has already been processed"}

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	require.NoError(t, err)
	assert.Equal(t, Confirmed, exec.State)
	assert.Equal(t, exec.Tx.Signatures[0], exec.Signature)
	require.Len(t, exec.Warnings, 1)
	assert.Contains(t, exec.Warnings[0], "already been processed")
}

func TestExecute_SubmitNetworkError(t *testing.T) {
	f := newFixture(t)
	f.wallet.sendErr = &rpc.NetworkError{Method: "sendTransaction", Err: errors.New("connection reset by peer")}

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageSubmit, se.Stage)
	assert.Equal(t, KindNetwork, se.Kind)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Equal(t, Failed, exec.State)
	assert.Equal(t, 1, f.wallet.sent)
	assert.Zero(t, f.wallet.confirmed)
}

func TestExecute_ConfirmTimeout(t *testing.T) {
	f := newFixture(t)
	f.wallet.confirmErr = wallet.ErrConfirmTimeout

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageConfirm, se.Stage)
	assert.Equal(t, KindTimeout, se.Kind)
	assert.Equal(t, []State{Pending, Quoted, Built, Simulated, Signed, Submitted, Failed}, states(exec))
}

func TestExecute_SimulationDisabled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequireSimulation = false })

	exec, err := f.asm.Execute(context.Background(), swapIntent())
	require.NoError(t, err)
	assert.Equal(t, []State{Pending, Quoted, Built, Signed, Submitted, Confirmed}, states(exec))
	assert.Zero(t, f.ledger.simulated)
}

func TestExecute_ComputeUnitPrice(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ComputeUnitPrice = 1_000 })

	exec, err := f.asm.Prepare(context.Background(), swapIntent())
	require.NoError(t, err)
	assert.Equal(t, computebudget.ProgramID, exec.Instructions[0].ProgramID())
	assert.Equal(t, computebudget.ProgramID, exec.Instructions[1].ProgramID())
}

func TestExecute_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec, err := f.asm.Execute(ctx, swapIntent())
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageQuote, se.Stage)
	assert.Equal(t, KindCancelled, se.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, exec.State)
	assert.Zero(t, f.ledger.reads)
}

func TestExecute_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]Intent{
		"unknown pool":  &SwapIntent{PoolKey: "999", InputMint: mintX, AmountIn: 1, SlippageBps: 50},
		"missing pool":  &WithdrawIntent{AmountL: 1},
		"foreign mint":  &SwapIntent{PoolKey: "42", InputMint: wsol, AmountIn: 1, SlippageBps: 50},
		"same mints":    &InitializeIntent{Seed: 1, MintX: mintX, MintY: mintX},
		"direct on amm": &DirectSwapIntent{PoolKey: "42", InputMint: mintX, AmountIn: 1},
	}
	for name, intent := range cases {
		t.Run(name, func(t *testing.T) {
			exec, err := f.asm.Execute(ctx, intent)
			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, KindValidation, se.Kind)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, Failed, exec.State)
		})
	}
	assert.Zero(t, f.wallet.sent)
}

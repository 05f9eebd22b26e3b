package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/simulate"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_HappyPathTransitions(t *testing.T) {
	exec := newExecution("swap", solana.PublicKey{}, nil)
	for _, s := range []State{Quoted, Built, Simulated, Signed, Submitted, Confirmed} {
		require.NoError(t, exec.Advance(s), "advance to %s", s)
	}
	assert.Equal(t, Confirmed, exec.State)
	assert.Len(t, exec.Timeline, 7)
	assert.True(t, exec.State.Terminal())
}

func TestExecution_IllegalTransitions(t *testing.T) {
	exec := newExecution("swap", solana.PublicKey{}, nil)

	err := exec.Advance(Built)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, Pending, exec.State)

	require.NoError(t, exec.Advance(Quoted))
	require.NoError(t, exec.Advance(Built))
	assert.ErrorIs(t, exec.Advance(Quoted), ErrIllegalTransition)

	// simulation may be skipped, signing may not
	require.NoError(t, exec.Advance(Signed))
	assert.ErrorIs(t, exec.Advance(Confirmed), ErrIllegalTransition)

	require.NoError(t, exec.Advance(Failed))
	assert.ErrorIs(t, exec.Advance(Submitted), ErrIllegalTransition)
	assert.ErrorIs(t, exec.Advance(Failed), ErrIllegalTransition)
}

func TestExecution_FailCopiesSimulationLogs(t *testing.T) {
	exec := newExecution("swap", solana.PublicKey{}, nil)
	require.NoError(t, exec.Advance(Quoted))
	require.NoError(t, exec.Advance(Built))

	se := exec.fail(StageSimulate, &simulate.FailedError{
		Logs:          []string{"Program log: boom"},
		UnitsConsumed: 321,
	})
	assert.Equal(t, KindSimulation, se.Kind)
	assert.Equal(t, Failed, exec.State)
	assert.Equal(t, []string{"Program log: boom"}, exec.Logs)
	assert.Equal(t, uint64(321), exec.Units)
	assert.NotEmpty(t, exec.Error)

	// a second failure keeps the first error's kind and state
	again := exec.fail(StageSign, se)
	assert.Same(t, se, again)
	assert.Equal(t, Failed, exec.State)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		stage Stage
		err   error
		want  Kind
	}{
		{StageQuote, fmt.Errorf("%w: pool", ErrValidation), KindValidation},
		{StageQuote, pricing.ErrSlippageExceeded, KindQuote},
		{StageQuote, context.Canceled, KindCancelled},
		{StageConfirm, context.DeadlineExceeded, KindCancelled},
		{StageSimulate, &simulate.FailedError{}, KindSimulation},
		{StageSubmit, &rpc.NetworkError{Method: "sendTransaction", Err: errors.New("reset")}, KindNetwork},
		{StageSubmit, &rpc.RPCError{Code: -32002, Message: "blockhash not found"}, KindLedger},
		{StageConfirm, &wallet.TxFailedError{}, KindLedger},
		{StageConfirm, wallet.ErrConfirmTimeout, KindTimeout},
		{StageSign, errors.New("missing signer"), KindSigning},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.stage, tc.err), "%s: %v", tc.stage, tc.err)
	}
}

func TestExecutionJSON(t *testing.T) {
	exec := newExecution("deposit", solana.PublicKey{}, nil)
	require.NoError(t, exec.Advance(Quoted))

	raw, err := json.Marshal(exec)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "QUOTED", out["state"])
	assert.Equal(t, "deposit", out["intent"])
	assert.NotContains(t, out, "Tx")
}

func TestNewExecution_UniqueIDs(t *testing.T) {
	const workers, each = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, 0, each)
			for i := 0; i < each; i++ {
				ids = append(ids, newExecution("swap", solana.PublicKey{}, nil).ID)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}

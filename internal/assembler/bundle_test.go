package assembler

import (
	"math"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleSpend(t *testing.T) {
	b := newBundle()
	require.NoError(t, b.spend(math.MaxUint64-5))
	require.NoError(t, b.spend(5))
	assert.Equal(t, uint64(math.MaxUint64), b.wrapped)

	err := b.spend(1)
	assert.ErrorIs(t, err, pricing.ErrOverflow)
	assert.Equal(t, uint64(math.MaxUint64), b.wrapped, "a rejected spend leaves the total unchanged")
}

func TestWrapOnlyCountsWrappedMint(t *testing.T) {
	f := newFixture(t)
	b := newBundle()

	require.NoError(t, f.asm.wrap(b, mintX, math.MaxUint64))
	assert.Zero(t, b.wrapped)

	require.NoError(t, f.asm.wrap(b, wsol, math.MaxUint64-1))
	err := f.asm.wrap(b, wsol, 2)
	require.ErrorIs(t, err, pricing.ErrOverflow)

	exec := newExecution("swap", f.wallet.PublicKey(), nil)
	se := exec.fail(StageBuild, err)
	assert.Equal(t, KindQuote, se.Kind)
	assert.Equal(t, Failed, exec.State)
}

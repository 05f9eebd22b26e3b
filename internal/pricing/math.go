// Package pricing implements the constant-product arithmetic the AMM
// program applies on-chain. All amounts are raw u64 token units; wide
// intermediates use 128-bit integers and every division floors unless the
// function says otherwise.
package pricing

import (
	"fmt"
	"math"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"lukechampine.com/uint128"
)

// SwapResult is the outcome of one constant-product swap step.
type SwapResult struct {
	AmountIn         uint64
	AmountInAfterFee uint64
	ReserveIn        uint64
	ReserveOut       uint64
	K                uint128.Uint128
	NewReserveIn     uint128.Uint128
	NewReserveOut    uint64
	AmountOut        uint64
}

// Swap computes the output of trading amountIn against (rin, rout) with a
// fee of feeBps taken from the input. The new output reserve is rounded
// up so that newReserveIn*newReserveOut >= k and the trader never gains
// from rounding.
func Swap(rin, rout, amountIn uint64, feeBps uint16) (*SwapResult, error) {
	if err := validateBps(feeBps); err != nil {
		return nil, err
	}
	if amountIn == 0 {
		return nil, fmt.Errorf("%w: amount in is zero", ErrInvalidAmount)
	}

	after := mulDivFloor(amountIn, constants.BpsDenominator-uint64(feeBps), constants.BpsDenominator)

	k := uint128.From64(rin).Mul64(rout)
	newRin := uint128.From64(rin).Add64(after)
	if newRin.IsZero() {
		return nil, ErrDivideByZero
	}

	if rin == 0 || rout == 0 {
		return nil, fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}

	newRout, rem := k.QuoRem(newRin)
	if !rem.IsZero() {
		newRout = newRout.Add64(1)
	}
	// 0 < newRout <= rout because newRin >= rin > 0
	out := rout - newRout.Lo

	return &SwapResult{
		AmountIn:         amountIn,
		AmountInAfterFee: after,
		ReserveIn:        rin,
		ReserveOut:       rout,
		K:                k,
		NewReserveIn:     newRin,
		NewReserveOut:    newRout.Lo,
		AmountOut:        out,
	}, nil
}

// MinOut applies a slippage tolerance to amountOut. A zero result is an
// error: no instruction may carry a zero minimum.
func MinOut(amountOut uint64, slippageBps uint16) (uint64, error) {
	if err := validateBps(slippageBps); err != nil {
		return 0, err
	}
	min := mulDivFloor(amountOut, constants.BpsDenominator-uint64(slippageBps), constants.BpsDenominator)
	if min == 0 {
		return 0, ErrMinOutIsZero
	}
	return min, nil
}

// PriceImpact is 1 - executionRate/spotRate, clamped at zero.
func PriceImpact(amountIn, amountOut, rin, rout uint64) float64 {
	if amountIn == 0 || rin == 0 || rout == 0 {
		return 0
	}
	spot := float64(rout) / float64(rin)
	exec := float64(amountOut) / float64(amountIn)
	return math.Max(0, 1-exec/spot)
}

// HookFee is the wrapped-SOL fee the transfer hook charges for a transfer
// of amount.
func HookFee(amount uint64) uint64 {
	return amount / constants.HookFeeDivisor
}

// FeeBpsFromRatio converts a numerator/denominator fee into basis points.
func FeeBpsFromRatio(numerator, denominator uint64) uint16 {
	if denominator == 0 {
		return 0
	}
	return uint16(mulDivFloor(numerator, constants.BpsDenominator, denominator))
}

func validateBps(bps uint16) error {
	if uint64(bps) > constants.BpsDenominator {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, bps)
	}
	return nil
}

// mulDivFloor returns floor(a*b/c). Callers guarantee the quotient fits in
// 64 bits and c > 0.
func mulDivFloor(a, b, c uint64) uint64 {
	return uint128.From64(a).Mul64(b).Div64(c).Lo
}

// mulDivCeil returns ceil(a*b/c) and false if it does not fit in 64 bits.
func mulDivCeil(a, b, c uint64) (uint64, bool) {
	q, r := uint128.From64(a).Mul64(b).QuoRem64(c)
	if r != 0 {
		q = q.Add64(1)
	}
	if q.Hi != 0 {
		return 0, false
	}
	return q.Lo, true
}

func mulDivFloorChecked(a, b, c uint64) (uint64, bool) {
	q := uint128.From64(a).Mul64(b).Div64(c)
	if q.Hi != 0 {
		return 0, false
	}
	return q.Lo, true
}

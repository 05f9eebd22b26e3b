package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToRaw scales a human-entered amount by 10^decimals, flooring any excess
// precision.
func ToRaw(human string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, human)
	}
	return DecimalToRaw(d, decimals)
}

// DecimalToRaw is ToRaw for an already-parsed amount.
func DecimalToRaw(d decimal.Decimal, decimals uint8) (uint64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount", ErrInvalidAmount)
	}
	raw := d.Shift(int32(decimals)).Floor().BigInt()
	if !raw.IsUint64() {
		return 0, ErrOverflow
	}
	return raw.Uint64(), nil
}

// ToHuman renders a raw amount with decimals applied.
func ToHuman(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

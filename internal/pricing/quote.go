package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrMinOutIsZero          = errors.New("min out is zero")
	ErrDivideByZero          = errors.New("divide by zero")
	ErrInvalidFee            = errors.New("invalid fee")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrOverflow              = errors.New("amount overflow")
)

// IsQuoteError reports whether err was produced by the pricing rules
// rather than by I/O.
func IsQuoteError(err error) bool {
	for _, target := range []error{
		ErrSlippageExceeded, ErrMinOutIsZero, ErrDivideByZero, ErrInvalidFee,
		ErrInvalidAmount, ErrInsufficientLiquidity, ErrOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Quote is a priced swap ready to be turned into an instruction.
type Quote struct {
	*SwapResult
	FeeBps      uint16
	SlippageBps uint16
	MinOut      uint64
	PriceImpact float64
}

// QuoteSwap prices a swap and applies slippage.
func QuoteSwap(rin, rout, amountIn uint64, feeBps, slippageBps uint16) (*Quote, error) {
	res, err := Swap(rin, rout, amountIn, feeBps)
	if err != nil {
		return nil, err
	}
	min, err := MinOut(res.AmountOut, slippageBps)
	if err != nil {
		return nil, err
	}
	return &Quote{
		SwapResult:  res,
		FeeBps:      feeBps,
		SlippageBps: slippageBps,
		MinOut:      min,
		PriceImpact: PriceImpact(amountIn, res.AmountOut, rin, rout),
	}, nil
}

// DepositQuote is the token outlay for minting AmountL LP tokens.
type DepositQuote struct {
	AmountL  uint64 `json:"amountL"`
	AmountX  uint64 `json:"amountX"`
	AmountY  uint64 `json:"amountY"`
	MaxX     uint64 `json:"maxX"`
	MaxY     uint64 `json:"maxY"`
	LPMinted uint64 `json:"lpMinted"`
	// Initial is true when the pool had no LP supply and the caller's
	// maxima seeded the reserves.
	Initial bool `json:"initial"`
}

// Deposit computes the amounts needed to mint amountL LP tokens. For an
// empty pool the caller-supplied maxima are deposited as-is. Otherwise
// each side is ceil(reserve*amountL/supply) and must not exceed its
// maximum.
func Deposit(reserveX, reserveY, lpSupply, amountL, maxX, maxY uint64) (*DepositQuote, error) {
	if amountL == 0 {
		return nil, fmt.Errorf("%w: lp amount is zero", ErrInvalidAmount)
	}

	if lpSupply == 0 {
		if maxX == 0 || maxY == 0 {
			return nil, fmt.Errorf("%w: initial deposit needs both sides", ErrInvalidAmount)
		}
		return &DepositQuote{
			AmountL:  amountL,
			AmountX:  maxX,
			AmountY:  maxY,
			MaxX:     maxX,
			MaxY:     maxY,
			LPMinted: amountL,
			Initial:  true,
		}, nil
	}

	if reserveX == 0 || reserveY == 0 {
		return nil, fmt.Errorf("%w: pool has supply but an empty vault", ErrInsufficientLiquidity)
	}

	x, ok := mulDivCeil(reserveX, amountL, lpSupply)
	if !ok {
		return nil, ErrOverflow
	}
	y, ok := mulDivCeil(reserveY, amountL, lpSupply)
	if !ok {
		return nil, ErrOverflow
	}
	if x > maxX || y > maxY {
		return nil, fmt.Errorf("%w: need x=%d (max %d) y=%d (max %d)", ErrSlippageExceeded, x, maxX, y, maxY)
	}

	return &DepositQuote{
		AmountL:  amountL,
		AmountX:  x,
		AmountY:  y,
		MaxX:     maxX,
		MaxY:     maxY,
		LPMinted: amountL,
	}, nil
}

// LPForDeposit returns the LP amount a deposit of amountX on the X side
// mints: floor(amountX*supply/reserveX).
func LPForDeposit(reserveX, lpSupply, amountX uint64) (uint64, error) {
	if reserveX == 0 || lpSupply == 0 {
		return 0, ErrDivideByZero
	}
	l, ok := mulDivFloorChecked(amountX, lpSupply, reserveX)
	if !ok {
		return 0, ErrOverflow
	}
	if l == 0 {
		return 0, fmt.Errorf("%w: deposit too small to mint lp", ErrInvalidAmount)
	}
	return l, nil
}

// WithdrawQuote is the token return for burning AmountL LP tokens.
type WithdrawQuote struct {
	AmountL uint64 `json:"amountL"`
	AmountX uint64 `json:"amountX"`
	AmountY uint64 `json:"amountY"`
	MinX    uint64 `json:"minX"`
	MinY    uint64 `json:"minY"`
}

// Withdraw computes the pro-rata return for burning amountL and checks it
// against the caller minima.
func Withdraw(reserveX, reserveY, lpSupply, amountL, minX, minY uint64) (*WithdrawQuote, error) {
	if amountL == 0 {
		return nil, fmt.Errorf("%w: lp amount is zero", ErrInvalidAmount)
	}
	if lpSupply == 0 {
		return nil, fmt.Errorf("%w: pool has no lp supply", ErrInsufficientLiquidity)
	}
	if amountL > lpSupply {
		return nil, fmt.Errorf("%w: burn %d exceeds supply %d", ErrInsufficientLiquidity, amountL, lpSupply)
	}

	x := mulDivFloor(reserveX, amountL, lpSupply)
	y := mulDivFloor(reserveY, amountL, lpSupply)
	if x < minX || y < minY {
		return nil, fmt.Errorf("%w: receive x=%d (min %d) y=%d (min %d)", ErrSlippageExceeded, x, minX, y, minY)
	}

	return &WithdrawQuote{AmountL: amountL, AmountX: x, AmountY: y, MinX: minX, MinY: minY}, nil
}

// WithdrawMinima applies slippage to an expected pro-rata return so the
// caller can pass realistic minima.
func WithdrawMinima(reserveX, reserveY, lpSupply, amountL uint64, slippageBps uint16) (uint64, uint64, error) {
	q, err := Withdraw(reserveX, reserveY, lpSupply, amountL, 0, 0)
	if err != nil {
		return 0, 0, err
	}
	if err := validateBps(slippageBps); err != nil {
		return 0, 0, err
	}
	minX := mulDivFloor(q.AmountX, 10_000-uint64(slippageBps), 10_000)
	minY := mulDivFloor(q.AmountY, 10_000-uint64(slippageBps), 10_000)
	return minX, minY, nil
}

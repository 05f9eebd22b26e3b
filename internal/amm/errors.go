package amm

import "fmt"

// customErrorBase is the first code Anchor assigns to program errors.
const customErrorBase = 6000

// ProgramError is an error raised by the AMM program.
type ProgramError struct {
	Code    uint32
	Name    string
	Message string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

// in declaration order; code = 6000 + index
var programErrors = []struct{ name, msg string }{
	{"DefaultError", "Default Error"},
	{"OfferExpired", "Offer Expired"},
	{"PoolLocked", "This pool is locked"},
	{"SlippageExceded", "Slippage exceeded"},
	{"Overflow", "OverFlow detected"},
	{"Underflow", "UnderFlow detected"},
	{"InvalidToken", "Invalid Token"},
	{"LiquidityLessThanMinium", "Actual Liquidity is Less than minimum"},
	{"NoLiquidityInPool", "No Liquidity in Pool"},
	{"BumpError", "Bump Error"},
	{"CurveError", "Curve Error"},
	{"InvalidFee", "Fee is greater than 100%, This is not very good deal"},
	{"InvalidAuthority", "Invalid update authority"},
	{"NoAuthoritySet", "No update authority set"},
	{"InvalidAmount", "Invalid Amount"},
	{"InvalidPrecision", "Invalid precision"},
	{"Insufficientbalance", "Insufficient balance"},
	{"ZeroBalance", "Zero balance"},
}

// ErrorByCode maps a custom program error code to its definition.
func ErrorByCode(code uint32) (*ProgramError, bool) {
	if code < customErrorBase || int(code-customErrorBase) >= len(programErrors) {
		return nil, false
	}
	e := programErrors[code-customErrorBase]
	return &ProgramError{Code: code, Name: e.name, Message: e.msg}, true
}

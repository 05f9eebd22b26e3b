package assembler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/simulate"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/wallet"
	"github.com/gagliardetto/solana-go"
)

// ErrIllegalTransition is returned when an execution is moved against the
// pipeline order or out of a terminal state.
var ErrIllegalTransition = errors.New("illegal state transition")

// ErrValidation marks input rejected before any network call.
var ErrValidation = errors.New("validation failed")

// State is a pipeline position.
type State int

const (
	Pending State = iota
	Quoted
	Built
	Simulated
	Signed
	Submitted
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Quoted:
		return "QUOTED"
	case Built:
		return "BUILT"
	case Simulated:
		return "SIMULATED"
	case Signed:
		return "SIGNED"
	case Submitted:
		return "SUBMITTED"
	case Confirmed:
		return "CONFIRMED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal states accept no further transitions.
func (s State) Terminal() bool { return s == Confirmed || s == Failed }

var transitions = map[State][]State{
	Pending:   {Quoted},
	Quoted:    {Built},
	Built:     {Simulated, Signed},
	Simulated: {Signed},
	Signed:    {Submitted},
	Submitted: {Confirmed},
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage names a pipeline step.
type Stage string

const (
	StageQuote    Stage = "quote"
	StageBuild    Stage = "build"
	StageSimulate Stage = "simulate"
	StageSign     Stage = "sign"
	StageSubmit   Stage = "submit"
	StageConfirm  Stage = "confirm"
)

// Kind classifies why a stage failed.
type Kind string

const (
	KindValidation Kind = "validation"
	KindQuote      Kind = "quote"
	KindSimulation Kind = "simulation"
	KindNetwork    Kind = "network"
	KindLedger     Kind = "ledger"
	KindSigning    Kind = "signing"
	KindTimeout    Kind = "timeout"
	KindCancelled  Kind = "cancelled"
)

// StageError is every error the pipeline returns.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func classify(stage Stage, err error) Kind {
	var (
		netErr   *rpc.NetworkError
		rpcErr   *rpc.RPCError
		simErr   *simulate.FailedError
		txErr    *wallet.TxFailedError
		stageErr *StageError
	)
	switch {
	case errors.As(err, &stageErr):
		return stageErr.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case pricing.IsQuoteError(err):
		return KindQuote
	case errors.As(err, &simErr):
		return KindSimulation
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &txErr), errors.As(err, &rpcErr):
		return KindLedger
	case errors.Is(err, wallet.ErrConfirmTimeout):
		return KindTimeout
	case stage == StageSign:
		return KindSigning
	default:
		return KindValidation
	}
}

// Transition records one state change.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Execution is one run of the pipeline for one intent. It is discarded
// after reaching a terminal state; a failed execution is never resumed.
type Execution struct {
	ID        string                      `json:"id"`
	Intent    string                      `json:"intent"`
	Owner     solana.PublicKey            `json:"owner"`
	State     State                       `json:"state"`
	Timeline  []Transition                `json:"timeline"`
	Quote     any                         `json:"quote,omitempty"`
	Accounts  map[string]solana.PublicKey `json:"accounts,omitempty"`
	Signature solana.Signature            `json:"signature"`
	Logs      []string                    `json:"logs,omitempty"`
	Units     uint64                      `json:"unitsConsumed,omitempty"`
	Warnings  []string                    `json:"warnings,omitempty"`
	Error     string                      `json:"error,omitempty"`

	Instructions []solana.Instruction `json:"-"`
	Tx           *solana.Transaction  `json:"-"`
	Err          error                `json:"-"`

	observer Observer
}

// execSeq disambiguates executions started within the same clock tick.
var execSeq atomic.Uint64

func newExecution(intent string, owner solana.PublicKey, observer Observer) *Execution {
	now := time.Now().UTC()
	return &Execution{
		ID:       fmt.Sprintf("exec_%d_%d", now.UnixNano(), execSeq.Add(1)),
		Intent:   intent,
		Owner:    owner,
		State:    Pending,
		Timeline: []Transition{{State: Pending, At: now}},
		Accounts: map[string]solana.PublicKey{},
		observer: observer,
	}
}

// Advance moves the execution to next.
func (e *Execution) Advance(next State) error {
	if !canTransition(e.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.State, next)
	}
	prev := e.State
	e.State = next
	e.Timeline = append(e.Timeline, Transition{State: next, At: time.Now().UTC()})
	if e.observer != nil {
		e.observer.OnTransition(e, prev, next)
	}
	return nil
}

// StartedAt is when the execution was created.
func (e *Execution) StartedAt() time.Time { return e.Timeline[0].At }

// Duration is the time from creation to the latest transition.
func (e *Execution) Duration() time.Duration {
	return e.Timeline[len(e.Timeline)-1].At.Sub(e.StartedAt())
}

func (e *Execution) warn(msg string) {
	e.Warnings = append(e.Warnings, msg)
}

// fail moves the execution to Failed and returns the stage error.
func (e *Execution) fail(stage Stage, err error) *StageError {
	se, ok := err.(*StageError)
	if !ok {
		se = &StageError{Stage: stage, Kind: classify(stage, err), Err: err}
	}
	e.Err = se
	e.Error = se.Error()
	var simErr *simulate.FailedError
	if errors.As(err, &simErr) {
		e.Logs = simErr.Logs
		e.Units = simErr.UnitsConsumed
	}
	if !e.State.Terminal() {
		_ = e.Advance(Failed)
	}
	return se
}

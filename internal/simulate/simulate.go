// Package simulate dry-runs transactions before they are submitted and
// classifies the failures.
package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/amm"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Client is the ledger call the simulator needs.
type Client interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.SimulateOptions) (*rpc.SimulationValue, error)
}

// Report is a successful simulation.
type Report struct {
	Logs          []string
	UnitsConsumed uint64
}

// InstructionError locates a failure inside a transaction.
type InstructionError struct {
	Index   int
	Program solana.PublicKey
	// Kind is the runtime error name, e.g. "Custom" or "InvalidAccountData".
	Kind   string
	Custom *uint32
}

// FailedError is a simulation the ledger rejected. Logs are kept exactly as
// the node returned them.
type FailedError struct {
	Logs          []string
	Err           any
	Instruction   *InstructionError
	ProgramError  *amm.ProgramError
	UnitsConsumed uint64
}

func (e *FailedError) Error() string {
	var b strings.Builder
	b.WriteString("simulation failed")
	switch {
	case e.ProgramError != nil:
		fmt.Fprintf(&b, ": instruction %d: %s", e.Instruction.Index, e.ProgramError.Error())
	case e.Instruction != nil && e.Instruction.Custom != nil:
		fmt.Fprintf(&b, ": instruction %d: custom program error %d", e.Instruction.Index, *e.Instruction.Custom)
	case e.Instruction != nil:
		fmt.Fprintf(&b, ": instruction %d: %s", e.Instruction.Index, e.Instruction.Kind)
	default:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Logs) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(e.Logs, "\n"))
	}
	return b.String()
}

// Simulator runs transactions against current ledger state without
// committing them.
type Simulator struct {
	client       Client
	ammProgramID solana.PublicKey
	commitment   string
	logger       *logrus.Logger
}

func NewSimulator(client Client, ammProgramID solana.PublicKey, commitment string, logger *logrus.Logger) *Simulator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{
		client:       client,
		ammProgramID: ammProgramID,
		commitment:   commitment,
		logger:       logger,
	}
}

// Simulate dry-runs tx with signature verification off. Unsigned
// transactions are simulated with empty signature slots; tx is not
// modified. A rejected transaction yields *FailedError.
func (s *Simulator) Simulate(ctx context.Context, tx *solana.Transaction) (*Report, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}

	value, err := s.client.SimulateTransaction(ctx, withSignatureSlots(tx), rpc.SimulateOptions{
		SigVerify:  false,
		Commitment: s.commitment,
	})
	if err != nil {
		return nil, err
	}

	var units uint64
	if value.UnitsConsumed != nil {
		units = *value.UnitsConsumed
	}

	if value.Err == nil {
		s.logger.WithFields(logrus.Fields{
			"units": units,
			"logs":  len(value.Logs),
		}).Debug("simulation ok")
		return &Report{Logs: value.Logs, UnitsConsumed: units}, nil
	}

	failed := &FailedError{
		Logs:          value.Logs,
		Err:           value.Err,
		UnitsConsumed: units,
	}
	if ie, ok := parseInstructionError(value.Err); ok {
		ie.Program = programAt(tx, ie.Index)
		failed.Instruction = ie
		if ie.Custom != nil && !s.ammProgramID.IsZero() && ie.Program.Equals(s.ammProgramID) {
			if pe, ok := amm.ErrorByCode(*ie.Custom); ok {
				failed.ProgramError = pe
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"error": failed.Err,
		"units": units,
	}).Warn("simulation rejected transaction")

	return nil, failed
}

func withSignatureSlots(tx *solana.Transaction) *solana.Transaction {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) >= required {
		return tx
	}
	cp := *tx
	cp.Signatures = make([]solana.Signature, required)
	copy(cp.Signatures, tx.Signatures)
	return &cp
}

// parseInstructionError reads {"InstructionError":[idx, detail]} where
// detail is a string or {"Custom": n}.
func parseInstructionError(raw any) (*InstructionError, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	pair, ok := m["InstructionError"].([]any)
	if !ok || len(pair) != 2 {
		return nil, false
	}
	idx, ok := pair[0].(float64)
	if !ok {
		return nil, false
	}

	ie := &InstructionError{Index: int(idx)}
	switch detail := pair[1].(type) {
	case string:
		ie.Kind = detail
	case map[string]any:
		for k, v := range detail {
			ie.Kind = k
			if code, ok := v.(float64); ok && k == "Custom" {
				c := uint32(code)
				ie.Custom = &c
			}
		}
	}
	return ie, true
}

func programAt(tx *solana.Transaction, index int) solana.PublicKey {
	if index < 0 || index >= len(tx.Message.Instructions) {
		return solana.PublicKey{}
	}
	pi := int(tx.Message.Instructions[index].ProgramIDIndex)
	if pi >= len(tx.Message.AccountKeys) {
		return solana.PublicKey{}
	}
	return tx.Message.AccountKeys[pi]
}

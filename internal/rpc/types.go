package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// NetworkError is a transport failure: the node was not reached or did
// not answer. The message of the underlying error is preserved.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Commitment levels
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// AccountInfo is a decoded getAccountInfo value.
type AccountInfo struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Data       []byte
	Executable bool
}

type accountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
}

// SimulationValue is the value of a simulateTransaction response.
type SimulationValue struct {
	Err           any      `json:"err"`
	Logs          []string `json:"logs"`
	UnitsConsumed *uint64  `json:"unitsConsumed,omitempty"`
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64 `json:"slot"`
	Confirmations      *int   `json:"confirmations"`
	Err                any    `json:"err"`
	ConfirmationStatus string `json:"confirmationStatus"`
}

// Blockhash is a recent blockhash and its expiry height.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

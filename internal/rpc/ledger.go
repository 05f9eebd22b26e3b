package rpc

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GetAccountInfo fetches an account. A missing account yields (nil, nil).
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment string) (*AccountInfo, error) {
	var result struct {
		Value *accountInfoValue `json:"value"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{
			"encoding":   "base64",
			"commitment": commitmentOrDefault(commitment),
		},
	}

	if err := c.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", pubkey, err)
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.decode()
}

// GetMultipleAccounts fetches accounts in one request; missing accounts
// are nil entries at the same index.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey, commitment string) ([]*AccountInfo, error) {
	keys := make([]string, len(pubkeys))
	for i, pk := range pubkeys {
		keys[i] = pk.String()
	}

	var result struct {
		Value []*accountInfoValue `json:"value"`
	}
	params := []any{
		keys,
		map[string]any{
			"encoding":   "base64",
			"commitment": commitmentOrDefault(commitment),
		},
	}

	if err := c.Call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, fmt.Errorf("getMultipleAccounts: %w", err)
	}
	if len(result.Value) != len(pubkeys) {
		return nil, fmt.Errorf("getMultipleAccounts: expected %d accounts, got %d", len(pubkeys), len(result.Value))
	}

	out := make([]*AccountInfo, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		acc, err := v.decode()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", pubkeys[i], err)
		}
		out[i] = acc
	}
	return out, nil
}

// GetBalance returns an account's lamports.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []any{
		pubkey.String(),
		map[string]any{"commitment": commitmentOrDefault(commitment)},
	}
	if err := c.Call(ctx, "getBalance", params, &result); err != nil {
		return 0, fmt.Errorf("getBalance: %w", err)
	}
	return result.Value, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of size bytes.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	if err := c.Call(ctx, "getMinimumBalanceForRentExemption", []any{size}, &lamports); err != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption: %w", err)
	}
	return lamports, nil
}

// GetLatestBlockhash fetches the most recent blockhash with commitment level
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string) (*Blockhash, error) {
	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}

	params := []any{
		map[string]any{"commitment": commitmentOrDefault(commitment)},
	}

	if err := c.Call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	hash, err := solana.HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash format: %w", err)
	}

	return &Blockhash{Hash: hash, LastValidBlockHeight: result.Value.LastValidBlockHeight}, nil
}

// SimulateOptions configures simulateTransaction.
type SimulateOptions struct {
	SigVerify  bool
	Commitment string
}

// SimulateTransaction dry-runs tx. A transaction that fails in simulation
// is not an error here; inspect SimulationValue.Err.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts SimulateOptions) (*SimulationValue, error) {
	encoded, err := encodeTx(tx)
	if err != nil {
		return nil, err
	}

	var result struct {
		Value SimulationValue `json:"value"`
	}
	params := []any{
		encoded,
		map[string]any{
			"encoding":   "base64",
			"sigVerify":  opts.SigVerify,
			"commitment": commitmentOrDefault(opts.Commitment),
		},
	}

	if err := c.Call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, fmt.Errorf("simulateTransaction: %w", err)
	}
	return &result.Value, nil
}

// SendOptions configures transaction sending behavior
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

// SendTransaction submits a signed transaction once.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error) {
	encoded, err := encodeTx(tx)
	if err != nil {
		return solana.Signature{}, err
	}

	cfg := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       opts.SkipPreflight,
		"preflightCommitment": commitmentOrDefault(opts.PreflightCommitment),
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}

	var sig string
	if err := c.Call(ctx, "sendTransaction", []any{encoded, cfg}, &sig); err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	return solana.SignatureFromBase58(sig)
}

// GetSignatureStatus returns the status of sig, or nil if the node has not
// seen it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{
		[]string{sig.String()},
		map[string]any{"searchTransactionHistory": true},
	}
	if err := c.Call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

// RequestAirdrop asks a test validator or devnet faucet for lamports.
func (c *Client) RequestAirdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64) (solana.Signature, error) {
	var sig string
	if err := c.Call(ctx, "requestAirdrop", []any{pubkey.String(), lamports}, &sig); err != nil {
		return solana.Signature{}, fmt.Errorf("requestAirdrop: %w", err)
	}
	return solana.SignatureFromBase58(sig)
}

func encodeTx(tx *solana.Transaction) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("transaction is nil")
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (v *accountInfoValue) decode() (*AccountInfo, error) {
	owner, err := solana.PublicKeyFromBase58(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: %w", v.Owner, err)
	}
	var data []byte
	if len(v.Data) > 0 {
		data, err = base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("invalid account data: %w", err)
		}
	}
	return &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      owner,
		Data:       data,
		Executable: v.Executable,
	}, nil
}

func commitmentOrDefault(c string) string {
	if c == "" {
		return CommitmentConfirmed
	}
	return c
}

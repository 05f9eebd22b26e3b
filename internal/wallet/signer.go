package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

// ErrConfirmTimeout is returned when a signature does not reach the
// requested commitment in time.
var ErrConfirmTimeout = errors.New("transaction confirmation timeout")

// TxFailedError reports a transaction that landed with an error.
type TxFailedError struct {
	Signature solana.Signature
	Err       any
}

func (e *TxFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Sign signs tx with the wallet key and any co-signers, such as a freshly
// generated mint keypair. Every required signer must be covered.
func (w *Wallet) Sign(tx *solana.Transaction, coSigners ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		for i := range coSigners {
			if key.Equals(coSigners[i].PublicKey()) {
				return &coSigners[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// SendTx sends a signed transaction once with the wallet's preflight settings.
func (w *Wallet) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := 0
	return w.rpc.SendTransaction(ctx, tx, rpc.SendOptions{
		SkipPreflight:       w.cfg.SkipPreflight,
		PreflightCommitment: w.cfg.PreflightCommitment,
		MaxRetries:          &maxRetries,
	})
}

// ConfirmTransaction polls for transaction confirmation
func (w *Wallet) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	return ConfirmSignature(ctx, w.rpc, sig, w.cfg.DefaultCommitment, w.cfg.ConfirmTimeout)
}

// StatusReader is the slice of the RPC client used for confirmation.
type StatusReader interface {
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatus, error)
}

// ConfirmSignature polls until sig reaches commitment, fails on-chain, or
// the timeout elapses.
func ConfirmSignature(
	ctx context.Context,
	reader StatusReader,
	sig solana.Signature,
	commitment string,
	timeout time.Duration,
) error {

	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		status, err := reader.GetSignatureStatus(ctx, sig)
		if err != nil {
			return fmt.Errorf("failed to check signature: %w", err)
		}

		if status != nil && status.ConfirmationStatus != "" {
			if status.Err != nil {
				return &TxFailedError{Signature: sig, Err: status.Err}
			}
			if meetsCommitment(status.ConfirmationStatus, commitment) {
				return nil
			}
		}

		wait := backoff
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("%w after %v", ErrConfirmTimeout, timeout)
}

func meetsCommitment(got, want string) bool {
	switch want {
	case rpc.CommitmentProcessed:
		return got != ""
	case rpc.CommitmentConfirmed:
		return got == rpc.CommitmentConfirmed || got == rpc.CommitmentFinalized
	case rpc.CommitmentFinalized:
		return got == rpc.CommitmentFinalized
	default:
		return got != ""
	}
}

package simulate

import (
	"errors"
	"strings"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
)

// Submission errors whose text means the effect already exists on the
// ledger. Matching is case-insensitive on the error message and, for node
// errors, on the attached data.
var partialSuccessPatterns = []string{
	"already been processed",
	"already in use",
	"account already exists",
}

// PartialSuccess returns the pattern err matches, if any.
func PartialSuccess(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	texts := []string{err.Error()}
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) && len(rpcErr.Data) > 0 {
		texts = append(texts, string(rpcErr.Data))
	}
	var failed *FailedError
	if errors.As(err, &failed) {
		texts = append(texts, failed.Logs...)
	}

	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, p := range partialSuccessPatterns {
			if strings.Contains(lower, p) {
				return p, true
			}
		}
	}
	return "", false
}

// IsPartialSuccess reports whether err only says an idempotent step was
// already satisfied.
func IsPartialSuccess(err error) bool {
	_, ok := PartialSuccess(err)
	return ok
}

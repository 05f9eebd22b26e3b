// Package history keeps the outcome of every finished pipeline: a row in
// ClickHouse for analysis and a Redis message for live subscribers.
package history

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
)

// Record is the flattened outcome of one execution.
type Record struct {
	ExecutionID string    `json:"executionId"`
	Intent      string    `json:"intent"`
	Owner       string    `json:"owner"`
	State       string    `json:"state"`
	Stage       string    `json:"stage,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	Pool        string    `json:"pool,omitempty"`
	Units       uint64    `json:"unitsConsumed"`
	Warnings    uint32    `json:"warnings"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	DurationMs  int64     `json:"durationMs"`
}

// FromExecution flattens exec. The config address stands in for the pool
// when the intent touched one.
func FromExecution(exec *assembler.Execution) *Record {
	rec := &Record{
		ExecutionID: exec.ID,
		Intent:      exec.Intent,
		Owner:       exec.Owner.String(),
		State:       exec.State.String(),
		Error:       exec.Error,
		Units:       exec.Units,
		Warnings:    uint32(len(exec.Warnings)),
		StartedAt:   exec.StartedAt(),
		FinishedAt:  exec.Timeline[len(exec.Timeline)-1].At,
		DurationMs:  exec.Duration().Milliseconds(),
	}
	if exec.State == assembler.Confirmed || exec.State == assembler.Submitted {
		rec.Signature = exec.Signature.String()
	}
	if config, ok := exec.Accounts["config"]; ok {
		rec.Pool = config.String()
	}

	var se *assembler.StageError
	if errors.As(exec.Err, &se) {
		rec.Stage = string(se.Stage)
		rec.Kind = string(se.Kind)
	}
	return rec
}

// Sink persists records.
type Sink interface {
	InsertExecution(ctx context.Context, rec *Record) error
	io.Closer
}

// Publisher distributes records to live subscribers.
type Publisher interface {
	PublishExecution(ctx context.Context, rec *Record) error
	io.Closer
}

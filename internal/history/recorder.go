package history

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/sirupsen/logrus"
)

// Recorder stores and publishes finished executions. Both outputs are
// optional and best effort: a failure is logged and never reaches the
// pipeline.
type Recorder struct {
	sink      Sink
	publisher Publisher
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewRecorder(sink Sink, publisher Publisher, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{sink: sink, publisher: publisher, timeout: 5 * time.Second, logger: logger}
}

func (r *Recorder) OnTransition(exec *assembler.Execution, from, to assembler.State) {}

func (r *Recorder) OnFinish(ctx context.Context, exec *assembler.Execution) {
	rec := FromExecution(exec)

	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if r.publisher != nil {
		if err := r.publisher.PublishExecution(ctx, rec); err != nil {
			r.logger.WithFields(logrus.Fields{
				"execution": rec.ExecutionID,
				"error":     err,
			}).Warn("execution publish failed")
		}
	}
	if r.sink != nil {
		if err := r.sink.InsertExecution(ctx, rec); err != nil {
			r.logger.WithFields(logrus.Fields{
				"execution": rec.ExecutionID,
				"error":     err,
			}).Error("execution history insert failed")
		}
	}
}

// Close releases both outputs.
func (r *Recorder) Close() error {
	var first error
	if r.publisher != nil {
		first = r.publisher.Close()
	}
	if r.sink != nil {
		if err := r.sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

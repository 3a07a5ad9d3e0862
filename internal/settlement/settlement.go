package settlement

import (
	"context"
	"log/slog"
)

// Submitter hands a finished match to the escrow/settlement collaborator.
// Submit is asynchronous: callers never wait for settlement to complete.
type Submitter interface {
	Submit(matchID, winnerID string, resultPayload []byte)
}

type submission struct {
	matchID  string
	winnerID string
	payload  []byte
}

// AsyncSubmitter buffers submissions and drains them on its own goroutine.
// It stands in for the on-chain escrow integration, which consumes the same
// interface.
type AsyncSubmitter struct {
	logger *slog.Logger
	queue  chan submission
}

func NewAsyncSubmitter(logger *slog.Logger) *AsyncSubmitter {
	return &AsyncSubmitter{
		logger: logger.With("component", "settlement"),
		queue:  make(chan submission, 64),
	}
}

// Run drains the submission queue until the context is canceled.
func (that *AsyncSubmitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-that.queue:
			that.logger.Info("match result submitted for settlement",
				"matchID", sub.matchID,
				"winnerID", sub.winnerID,
				"payloadBytes", len(sub.payload),
			)
		}
	}
}

// Submit enqueues a result without blocking. A full queue drops the
// submission with an error log rather than stalling the caller.
func (that *AsyncSubmitter) Submit(matchID, winnerID string, resultPayload []byte) {
	select {
	case that.queue <- submission{matchID: matchID, winnerID: winnerID, payload: resultPayload}:
	default:
		that.logger.Error("settlement queue full, dropping submission", "matchID", matchID)
	}
}

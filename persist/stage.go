// Package persist implements the final stage of the block pipeline: durable
// commit of certified blocks and epoch-change signaling.
package persist

import (
	"context"
	"errors"
	"time"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/types"
)

// ErrEmptyRequest is returned for requests without blocks or certificate.
var ErrEmptyRequest = errors.New("commit request has no blocks or ledger info")

// Committer durably commits a batch of blocks under a ledger certificate.
type Committer interface {
	Commit(ctx context.Context, blocks []*types.Block, li *types.LedgerInfoWithSignatures) error
}

// EpochChangeSender broadcasts epoch change proofs to peers. Delivery is best effort.
type EpochChangeSender interface {
	SendEpochChange(ctx context.Context, proof *types.EpochChangeProof) error
}

// Request is a single commit request.
type Request struct {
	Blocks     []*types.Block
	LedgerInfo *types.LedgerInfoWithSignatures
	// Completion, if set, is resolved once the commit is durable.
	Completion *Completion
}

// Stage commits requests through a Committer. It keeps no state between calls.
type Stage struct {
	committer Committer
	sender    EpochChangeSender
	logger    log.Logger
	metrics   *Metrics
}

// NewStage creates a Stage. sender may be nil when no peers need epoch changes.
func NewStage(committer Committer, sender EpochChangeSender, logger log.Logger, metrics *Metrics) *Stage {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Stage{
		committer: committer,
		sender:    sender,
		logger:    logger,
		metrics:   metrics,
	}
}

// Process commits req and returns the round of its certificate. Committer errors
// are returned unchanged and leave the completion unresolved. When the
// certificate ends an epoch, an epoch change proof is sent after the commit;
// a failed send is logged and does not affect the result.
func (s *Stage) Process(ctx context.Context, req Request) (uint64, error) {
	if len(req.Blocks) == 0 || req.LedgerInfo == nil {
		return 0, ErrEmptyRequest
	}

	start := time.Now()
	if err := s.committer.Commit(ctx, req.Blocks, req.LedgerInfo); err != nil {
		s.metrics.CommitFailures.Add(1)
		return 0, err
	}
	s.metrics.CommitTime.Observe(time.Since(start).Seconds())
	s.metrics.CommittedBlocks.Add(float64(len(req.Blocks)))

	if req.Completion != nil {
		req.Completion.Resolve(nil)
	}

	round := req.LedgerInfo.Round()
	if req.LedgerInfo.EndsEpoch() {
		s.sendEpochChange(ctx, req.LedgerInfo)
	}
	return round, nil
}

func (s *Stage) sendEpochChange(ctx context.Context, li *types.LedgerInfoWithSignatures) {
	if s.sender == nil {
		return
	}
	proof := types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{li}, false)
	if err := s.sender.SendEpochChange(ctx, proof); err != nil {
		s.metrics.EpochChangeFailures.Add(1)
		s.logger.Warn("failed to send epoch change", "epoch", li.LedgerInfo.Epoch, "error", err)
		return
	}
	s.metrics.EpochChanges.Add(1)
	s.logger.Info("epoch change sent", "epoch", li.LedgerInfo.Epoch, "round", li.Round())
}

package p2p

import (
	"context"
	"errors"
	"fmt"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/types"
)

// ErrInvalidProof is returned for epoch change proofs that carry no ledger
// info or whose last ledger info does not end an epoch.
var ErrInvalidProof = errors.New("invalid epoch change proof")

// EpochChangeTopic returns the name of the topic epoch change proofs of
// chainID are gossiped on.
func EpochChangeTopic(chainID string) string {
	return "/" + chainID + "/epoch-change/v1"
}

// EpochChangeHandler is called for every valid proof received from a peer.
type EpochChangeHandler func(ctx context.Context, from peer.ID, proof *types.EpochChangeProof)

// EpochChangeGossiper broadcasts epoch change proofs to the network and
// delivers the ones received from peers.
type EpochChangeGossiper struct {
	ps        *pubsub.PubSub
	topic     *pubsub.Topic
	topicName string
	self      peer.ID
	handler   EpochChangeHandler

	logger  log.Logger
	metrics *Metrics
}

// NewEpochChangeGossiper joins the epoch change topic of chainID. handler may be nil.
func NewEpochChangeGossiper(
	ps *pubsub.PubSub,
	self peer.ID,
	chainID string,
	handler EpochChangeHandler,
	logger log.Logger,
	metrics *Metrics,
) (*EpochChangeGossiper, error) {
	if metrics == nil {
		metrics = NopMetrics()
	}
	g := &EpochChangeGossiper{
		ps:        ps,
		topicName: EpochChangeTopic(chainID),
		self:      self,
		handler:   handler,
		logger:    logger.With("topic", EpochChangeTopic(chainID)),
		metrics:   metrics,
	}

	if err := ps.RegisterTopicValidator(g.topicName, g.validate); err != nil {
		return nil, fmt.Errorf("failed to register validator: %w", err)
	}
	topic, err := ps.Join(g.topicName)
	if err != nil {
		_ = ps.UnregisterTopicValidator(g.topicName)
		return nil, fmt.Errorf("failed to join topic: %w", err)
	}
	g.topic = topic
	return g, nil
}

// SendEpochChange publishes proof to every peer subscribed to the topic.
func (g *EpochChangeGossiper) SendEpochChange(ctx context.Context, proof *types.EpochChangeProof) error {
	if err := ValidateEpochChangeProof(proof); err != nil {
		return err
	}
	data, err := proof.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode proof: %w", err)
	}
	if err := g.topic.Publish(ctx, data); err != nil {
		return err
	}
	g.metrics.PublishedProofs.Add(1)
	g.logger.Debug("published epoch change", "epoch", proof.Epoch())
	return nil
}

// Run subscribes to the topic and hands proofs received from peers to the
// handler until ctx is done.
func (g *EpochChangeGossiper) Run(ctx context.Context) error {
	sub, err := g.topic.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Cancel()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if msg.ReceivedFrom == g.self {
			continue
		}

		proof, ok := msg.ValidatorData.(*types.EpochChangeProof)
		if !ok {
			continue
		}
		g.metrics.ReceivedProofs.Add(1)
		g.logger.Info("received epoch change", "epoch", proof.Epoch(), "from", msg.ReceivedFrom)
		if g.handler != nil {
			g.handler(ctx, msg.ReceivedFrom, proof)
		}
	}
}

// Peers returns the peers subscribed to the topic.
func (g *EpochChangeGossiper) Peers() []peer.ID {
	return g.topic.ListPeers()
}

// Close leaves the topic. Run must have returned. Closing after the pubsub
// context is done succeeds, as the stopped pubsub already dropped the topic.
func (g *EpochChangeGossiper) Close() error {
	return errors.Join(
		ignoreStopped(g.ps.UnregisterTopicValidator(g.topicName)),
		ignoreStopped(g.topic.Close()),
	)
}

func ignoreStopped(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (g *EpochChangeGossiper) validate(_ context.Context, from peer.ID, msg *pubsub.Message) pubsub.ValidationResult {
	var proof types.EpochChangeProof
	if err := proof.UnmarshalBinary(msg.Data); err != nil {
		g.reject(from, err)
		return pubsub.ValidationReject
	}
	if err := ValidateEpochChangeProof(&proof); err != nil {
		g.reject(from, err)
		return pubsub.ValidationReject
	}
	msg.ValidatorData = &proof
	return pubsub.ValidationAccept
}

func (g *EpochChangeGossiper) reject(from peer.ID, err error) {
	g.metrics.RejectedMessages.Add(1)
	g.logger.Debug("rejected message", "from", from, "error", err)
}

// ValidateEpochChangeProof checks the structure of a proof.
func ValidateEpochChangeProof(proof *types.EpochChangeProof) error {
	if proof == nil || len(proof.LedgerInfos) == 0 {
		return fmt.Errorf("%w: no ledger infos", ErrInvalidProof)
	}
	for i, li := range proof.LedgerInfos {
		if li == nil {
			return fmt.Errorf("%w: nil ledger info at %d", ErrInvalidProof, i)
		}
	}
	if last := proof.LedgerInfos[len(proof.LedgerInfos)-1]; !last.EndsEpoch() {
		return fmt.Errorf("%w: last ledger info does not end epoch %d", ErrInvalidProof, last.LedgerInfo.Epoch)
	}
	return nil
}

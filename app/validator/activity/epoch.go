package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/publisher"
	"github.com/domos-network/domosx/pkg/redis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BeginEvaluation loads the epoch and decides whether evaluation can proceed.
// Skips are terminal for the workflow but never errors: a void window or an
// already-archived epoch is a normal outcome, not a retryable failure.
func (c *Context) BeginEvaluation(ctx context.Context, in types.EvaluateEpochInput) (types.BeginEvaluationOutput, error) {
	start := time.Now()

	ep, err := c.Coordinator.Get(ctx, in.EpochID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return types.BeginEvaluationOutput{Skip: true, SkipReason: "epoch unknown"}, nil
		}
		return types.BeginEvaluationOutput{}, err
	}

	switch ep.State {
	case epoch.StateVoid:
		return types.BeginEvaluationOutput{Skip: true, SkipReason: "epoch void"}, nil
	case epoch.StateArchived:
		return types.BeginEvaluationOutput{Skip: true, SkipReason: "epoch already archived"}, nil
	}

	if !ep.Due(time.Now().UTC()) {
		return types.BeginEvaluationOutput{Skip: true, SkipReason: "submission window still open"}, nil
	}

	c.Logger.Info("Epoch evaluation starting",
		zap.Uint64("epoch", ep.ID),
		zap.Int("zones", len(ep.Zones)))

	return types.BeginEvaluationOutput{
		Epoch:      ep,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// FinalizeEpoch closes the lifecycle and hands the result to the publisher.
// Both transitions tolerate a concurrent finalizer: the state guard turns a
// replayed finalize into a no-op instead of a double evaluation.
func (c *Context) FinalizeEpoch(ctx context.Context, in types.FinalizeEpochInput) error {
	now := time.Now().UTC()
	if _, err := c.Coordinator.Complete(ctx, in.EpochID, now); err != nil && !errors.Is(err, epoch.ErrAlreadyProcessed) {
		return err
	}
	if _, err := c.Coordinator.Archive(ctx, in.EpochID); err != nil && !errors.Is(err, epoch.ErrAlreadyProcessed) {
		return err
	}

	c.Publisher.OnEpochEvaluated(publisher.EpochResult{
		EpochID:           in.EpochID,
		Vector:            in.Vector,
		Agreement:         in.Agreement,
		MinersEvaluated:   in.MinersEvaluated,
		ZoneParticipation: in.ZoneParticipation,
	})

	if payload, err := json.Marshal(map[string]any{
		"epoch_id":  in.EpochID,
		"agreement": in.Agreement,
		"miners":    in.MinersEvaluated,
	}); err == nil {
		c.Events.Publish(ctx, redis.ChannelEpochScored, string(payload))
	}

	c.Logger.Info("Epoch finalized",
		zap.Uint64("epoch", in.EpochID),
		zap.String("agreement", string(in.Agreement)),
		zap.Int("miners", in.MinersEvaluated))
	return nil
}

// DigestKey is where the epoch's local digest is persisted so the peer
// endpoint can serve it.
func DigestKey(epochID uint64) string {
	return fmt.Sprintf("digest:%d", epochID)
}

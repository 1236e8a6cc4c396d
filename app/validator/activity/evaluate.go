package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/validation"
)

// EvaluateZone gathers one zone's submissions from object storage and runs
// the full tier stack over each of them. Storage failures propagate so the
// activity retries; a miner's bad submission never does, it just produces a
// failing verdict.
func (c *Context) EvaluateZone(ctx context.Context, in types.EvaluateZoneInput) (types.EvaluateZoneOutput, error) {
	start := time.Now()
	out := types.EvaluateZoneOutput{ZoneID: in.ZoneID}

	ep, err := c.Coordinator.Get(ctx, in.EpochID)
	if err != nil {
		return out, err
	}
	zone := ep.Zone(in.ZoneID)
	if zone == nil {
		return out, fmt.Errorf("zone %s not assigned in epoch %d", in.ZoneID, in.EpochID)
	}

	subs, err := c.Gatherer.GatherZone(ctx, in.EpochID, in.ZoneID, ep.SubmissionDeadline)
	if err != nil {
		return out, err
	}
	out.Submissions = len(subs)

	byMiner := make(map[string]*validation.Verdict, len(subs))
	for _, sub := range subs {
		verdict := c.Validator.Evaluate(ctx, ep, zone, sub)
		byMiner[sub.MinerID] = verdict
		out.Verdicts = append(out.Verdicts, verdict)
	}

	// Cross-miner duplicate detection only makes sense with the whole zone
	// in hand.
	validation.FlagSynchronized(subs, byMiner)

	c.Logger.Info("Zone evaluated",
		zap.Uint64("epoch", in.EpochID),
		zap.String("zone", in.ZoneID),
		zap.Int("submissions", out.Submissions),
		zap.Bool("honeypot", zone.IsHoneypot))

	out.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	return out, nil
}

package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/credibility"
	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/validation"
)

// RankZones groups the epoch's verdicts by zone, ranks each zone's eligible
// miners and assigns reward shares. Honeypot zones carry no reward pool and
// are excluded here; their verdicts still reach the credibility update.
func (c *Context) RankZones(ctx context.Context, in types.RankZonesInput) (types.RankZonesOutput, error) {
	start := time.Now()

	ep, err := c.Coordinator.Get(ctx, in.EpochID)
	if err != nil {
		return types.RankZonesOutput{}, err
	}

	byZone := make(map[string][]*validation.Verdict)
	for _, v := range in.Verdicts {
		byZone[v.ZoneID] = append(byZone[v.ZoneID], v)
	}

	var outcomes []scoring.ZoneOutcome
	for _, zone := range ep.Zones {
		if zone.IsHoneypot {
			continue
		}
		ranked := c.Scorer.RankZone(byZone[zone.ZoneID])
		outcomes = append(outcomes, scoring.ZoneOutcome{
			Zone:   zone,
			Ranked: c.Scorer.DistributeZoneReward(ranked),
		})
	}

	c.Logger.Info("Zones ranked",
		zap.Uint64("epoch", in.EpochID),
		zap.Int("zones", len(outcomes)))

	return types.RankZonesOutput{
		Outcomes:   outcomes,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// UpdateCredibility folds the epoch into the ledger, one movement per miner.
// A miner's epoch outcome is its best eligible composite across zones; a
// flag anywhere turns the whole epoch into a penalty; a miner whose only
// verdicts are indeterminate is left untouched.
func (c *Context) UpdateCredibility(ctx context.Context, in types.UpdateCredibilityInput) (types.UpdateCredibilityOutput, error) {
	start := time.Now()

	byMiner := make(map[string][]*validation.Verdict)
	for _, v := range in.Verdicts {
		byMiner[v.MinerID] = append(byMiner[v.MinerID], v)
	}

	var updates []types.CredibilityUpdate
	for minerID, verdicts := range byMiner {
		outcome := minerOutcome(c.Scorer, verdicts)
		newScore := c.Ledger.Update(ctx, minerID, outcome)
		snap := c.Ledger.Get(ctx, minerID)
		updates = append(updates, types.CredibilityUpdate{
			MinerID:        minerID,
			Outcome:        outcome.Score,
			Score:          newScore,
			EpochsObserved: snap.EpochsObserved,
			Flagged:        outcome.Flagged,
			Indeterminate:  outcome.Indeterminate,
		})
	}

	c.Logger.Info("Credibility updated",
		zap.Uint64("epoch", in.EpochID),
		zap.Int("miners", len(updates)))

	return types.UpdateCredibilityOutput{
		Updates:    updates,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// minerOutcome collapses a miner's zone verdicts into one ledger outcome.
func minerOutcome(scorer *scoring.Scorer, verdicts []*validation.Verdict) credibility.Outcome {
	var out credibility.Outcome
	determinate := false
	for _, v := range verdicts {
		if v.Penalized() {
			out.Flagged = true
		}
		if v.Tier3Indeterminate {
			continue
		}
		determinate = true
		// Flagged verdicts never contribute a positive outcome, whatever
		// their tier scores say.
		if v.Eligible && len(v.Flags) == 0 {
			if s := scorer.Composite(v); s > out.Score {
				out.Score = s
			}
		}
	}
	out.Indeterminate = !out.Flagged && !determinate
	return out
}

// AggregateRewards folds the zone distributions into the epoch reward
// vector, credibility multipliers included.
func (c *Context) AggregateRewards(ctx context.Context, in types.AggregateRewardsInput) (types.AggregateRewardsOutput, error) {
	start := time.Now()

	vector := c.Scorer.AggregateEpoch(in.Outcomes, func(minerID string) float64 {
		return c.Ledger.Multiplier(ctx, minerID)
	})

	return types.AggregateRewardsOutput{
		Vector:     vector,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

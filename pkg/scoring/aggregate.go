package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/epoch"
)

// RewardVector maps miner IDs to weight shares. A published vector sums to
// exactly 1 within floating-point epsilon; an empty vector means the epoch
// is void and nothing may be published for it.
type RewardVector map[string]float64

// Sum returns the total weight in the vector.
func (rv RewardVector) Sum() float64 {
	var total float64
	for _, w := range rv {
		total += w
	}
	return total
}

// Normalized returns a copy scaled to sum to 1, or an empty vector when
// there is no weight to distribute.
func (rv RewardVector) Normalized() RewardVector {
	total := rv.Sum()
	out := make(RewardVector, len(rv))
	if total <= 0 || math.IsNaN(total) {
		return out
	}
	for miner, w := range rv {
		out[miner] = w / total
	}
	return out
}

// ZoneOutcome pairs a zone assignment with its reward distribution.
type ZoneOutcome struct {
	Zone   epoch.ZoneAssignment `json:"zone"`
	Ranked []RankedMiner        `json:"ranked"`
}

// AggregateEpoch folds zone distributions into the epoch reward vector.
// Zone pools are weighted by expected_count, so larger zones move more of
// the epoch total, then each miner's sum is scaled by its credibility
// multiplier and the whole vector is renormalized.
func (s *Scorer) AggregateEpoch(zones []ZoneOutcome, multiplier func(minerID string) float64) RewardVector {
	var totalExpected float64
	for _, z := range zones {
		if !z.Zone.IsHoneypot {
			totalExpected += float64(z.Zone.ExpectedCount)
		}
	}

	raw := make(RewardVector)
	if totalExpected <= 0 {
		return raw
	}

	for _, z := range zones {
		if z.Zone.IsHoneypot {
			continue
		}
		zoneWeight := float64(z.Zone.ExpectedCount) / totalExpected
		for _, rm := range z.Ranked {
			raw[rm.MinerID] += zoneWeight * rm.Share
		}
	}

	for miner := range raw {
		raw[miner] *= multiplier(miner)
	}

	vector := raw.Normalized()
	s.logger.Info("Epoch reward vector aggregated",
		zap.Int("zones", len(zones)),
		zap.Int("miners", len(vector)))
	return vector
}

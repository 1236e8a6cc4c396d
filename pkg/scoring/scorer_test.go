package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/validation"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func eligibleVerdict(minerID string, tier2, tier3 float64, submittedAt time.Time) *validation.Verdict {
	return &validation.Verdict{
		MinerID:       minerID,
		EpochID:       4211,
		ZoneID:        "94110",
		Tier1Pass:     true,
		Tier2Score:    tier2,
		Tier3PassRate: tier3,
		Eligible:      true,
		SubmittedAt:   submittedAt,
	}
}

func TestComposite(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	v := eligibleVerdict("miner-a", 0.95, 0.90, baseTime)
	assert.InDelta(t, 0.4*0.95+0.6*0.90, s.Composite(v), 1e-12)
}

func TestRankZone(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())

	t.Run("orders by composite descending", func(t *testing.T) {
		verdicts := []*validation.Verdict{
			eligibleVerdict("miner-low", 0.90, 0.80, baseTime),
			eligibleVerdict("miner-high", 1.0, 1.0, baseTime),
			eligibleVerdict("miner-mid", 0.95, 0.90, baseTime),
		}
		ranked := s.RankZone(verdicts)
		require.Len(t, ranked, 3)
		assert.Equal(t, "miner-high", ranked[0].MinerID)
		assert.Equal(t, "miner-mid", ranked[1].MinerID)
		assert.Equal(t, "miner-low", ranked[2].MinerID)
		assert.Equal(t, 1, ranked[0].Rank)
		assert.Equal(t, 3, ranked[2].Rank)
	})

	t.Run("composite tie goes to the earlier submission", func(t *testing.T) {
		verdicts := []*validation.Verdict{
			eligibleVerdict("miner-late", 0.95, 0.90, baseTime),
			eligibleVerdict("miner-early", 0.95, 0.90, baseTime.Add(-time.Minute)),
		}
		ranked := s.RankZone(verdicts)
		require.Len(t, ranked, 2)
		assert.Equal(t, "miner-early", ranked[0].MinerID)
	})

	t.Run("full tie falls back to miner ID", func(t *testing.T) {
		verdicts := []*validation.Verdict{
			eligibleVerdict("miner-b", 0.95, 0.90, baseTime),
			eligibleVerdict("miner-a", 0.95, 0.90, baseTime),
		}
		ranked := s.RankZone(verdicts)
		assert.Equal(t, "miner-a", ranked[0].MinerID)
	})

	t.Run("ineligible and flagged never rank", func(t *testing.T) {
		flagged := eligibleVerdict("miner-flagged", 1.0, 1.0, baseTime)
		flagged.Flags = []validation.FlagKind{validation.FlagHoneypotFail}
		ineligible := eligibleVerdict("miner-ineligible", 1.0, 1.0, baseTime)
		ineligible.Eligible = false

		ranked := s.RankZone([]*validation.Verdict{
			flagged,
			ineligible,
			eligibleVerdict("miner-a", 0.90, 0.80, baseTime),
		})
		require.Len(t, ranked, 1)
		assert.Equal(t, "miner-a", ranked[0].MinerID)
	})
}

func TestDistributeZoneReward(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())

	t.Run("podium plus proportional pool", func(t *testing.T) {
		ranked := []RankedMiner{
			{MinerID: "miner-1", Rank: 1, Composite: 0.98},
			{MinerID: "miner-2", Rank: 2, Composite: 0.95},
			{MinerID: "miner-3", Rank: 3, Composite: 0.92},
			{MinerID: "miner-4", Rank: 4, Composite: 0.90},
			{MinerID: "miner-5", Rank: 5, Composite: 0.60},
		}
		out := s.DistributeZoneReward(ranked)
		assert.InDelta(t, 0.55, out[0].Share, 1e-12)
		assert.InDelta(t, 0.30, out[1].Share, 1e-12)
		assert.InDelta(t, 0.10, out[2].Share, 1e-12)
		assert.InDelta(t, 0.05*0.90/1.50, out[3].Share, 1e-12)
		assert.InDelta(t, 0.05*0.60/1.50, out[4].Share, 1e-12)

		var total float64
		for _, rm := range out {
			total += rm.Share
		}
		assert.InDelta(t, 1.0, total, 1e-12)
	})

	t.Run("short field leaves slices unclaimed", func(t *testing.T) {
		out := s.DistributeZoneReward([]RankedMiner{
			{MinerID: "miner-1", Rank: 1, Composite: 0.9},
			{MinerID: "miner-2", Rank: 2, Composite: 0.8},
		})
		assert.InDelta(t, 0.55, out[0].Share, 1e-12)
		assert.InDelta(t, 0.30, out[1].Share, 1e-12)
	})

	t.Run("empty zone", func(t *testing.T) {
		assert.Empty(t, s.DistributeZoneReward(nil))
	})
}

func TestAggregateEpoch(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	neutral := func(string) float64 { return 1.0 }

	t.Run("zones weighted by expected count", func(t *testing.T) {
		zones := []ZoneOutcome{
			{
				Zone:   epoch.ZoneAssignment{ZoneID: "big", ExpectedCount: 300},
				Ranked: []RankedMiner{{MinerID: "miner-a", Rank: 1, Share: 0.55}},
			},
			{
				Zone:   epoch.ZoneAssignment{ZoneID: "small", ExpectedCount: 100},
				Ranked: []RankedMiner{{MinerID: "miner-b", Rank: 1, Share: 0.55}},
			},
		}
		vector := s.AggregateEpoch(zones, neutral)
		require.Len(t, vector, 2)
		assert.InDelta(t, 1.0, vector.Sum(), 1e-12)
		// Same rank and share, 3x the zone weight.
		assert.InDelta(t, 3.0, vector["miner-a"]/vector["miner-b"], 1e-9)
	})

	t.Run("credibility multiplier folds in before normalization", func(t *testing.T) {
		zones := []ZoneOutcome{{
			Zone: epoch.ZoneAssignment{ZoneID: "94110", ExpectedCount: 100},
			Ranked: []RankedMiner{
				{MinerID: "miner-trusted", Rank: 1, Share: 0.55},
				{MinerID: "miner-new", Rank: 2, Share: 0.30},
			},
		}}
		multiplier := func(minerID string) float64 {
			if minerID == "miner-new" {
				return 0.05
			}
			return 0.9
		}
		vector := s.AggregateEpoch(zones, multiplier)
		assert.InDelta(t, 1.0, vector.Sum(), 1e-12)
		// 0.55*0.9 vs 0.30*0.05: the newcomer's podium finish is suppressed.
		assert.InDelta(t, 33.0, vector["miner-trusted"]/vector["miner-new"], 1e-9)
	})

	t.Run("honeypot zones carry no weight", func(t *testing.T) {
		zones := []ZoneOutcome{
			{
				Zone:   epoch.ZoneAssignment{ZoneID: "94110", ExpectedCount: 100},
				Ranked: []RankedMiner{{MinerID: "miner-a", Rank: 1, Share: 0.55}},
			},
			{
				Zone:   epoch.ZoneAssignment{ZoneID: "decoy", ExpectedCount: 500, IsHoneypot: true},
				Ranked: []RankedMiner{{MinerID: "miner-x", Rank: 1, Share: 0.55}},
			},
		}
		vector := s.AggregateEpoch(zones, neutral)
		assert.NotContains(t, vector, "miner-x")
		assert.InDelta(t, 1.0, vector.Sum(), 1e-12)
	})

	t.Run("no participation yields a void vector", func(t *testing.T) {
		vector := s.AggregateEpoch(nil, neutral)
		assert.Empty(t, vector)
	})
}

func TestRewardVectorNormalized(t *testing.T) {
	t.Run("scales to one", func(t *testing.T) {
		v := RewardVector{"a": 2, "b": 6}
		n := v.Normalized()
		assert.InDelta(t, 0.25, n["a"], 1e-12)
		assert.InDelta(t, 0.75, n["b"], 1e-12)
	})

	t.Run("zero total stays empty", func(t *testing.T) {
		assert.Empty(t, RewardVector{}.Normalized())
		assert.Empty(t, RewardVector{"a": 0}.Normalized())
	})
}

func TestFullZoneScenario(t *testing.T) {
	// Five eligible miners in one zone, podium plus two runners-up sharing
	// the 5% pool by composite.
	s := New(DefaultConfig(), zap.NewNop())

	var verdicts []*validation.Verdict
	for i := 0; i < 5; i++ {
		verdicts = append(verdicts, eligibleVerdict(
			fmt.Sprintf("miner-%d", i+1),
			1.0-float64(i)*0.02,
			1.0-float64(i)*0.05,
			baseTime,
		))
	}

	out := s.DistributeZoneReward(s.RankZone(verdicts))
	require.Len(t, out, 5)
	assert.Equal(t, "miner-1", out[0].MinerID)
	assert.InDelta(t, 0.55, out[0].Share, 1e-12)
	assert.InDelta(t, 0.30, out[1].Share, 1e-12)
	assert.InDelta(t, 0.10, out[2].Share, 1e-12)
	assert.Greater(t, out[3].Share, out[4].Share)
	assert.InDelta(t, 0.05, out[3].Share+out[4].Share, 1e-12)
}

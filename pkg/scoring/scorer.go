// Package scoring converts per-zone verdicts into the epoch reward vector:
// rank, apply the fixed reward curve, weigh zones by size, fold in
// credibility, normalize.
package scoring

import (
	"sort"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/utils"
	"github.com/domos-network/domosx/pkg/validation"
)

// Config carries the scoring curve. The top-3 shares and the runner-up pool
// are protocol constants in spirit but kept configurable like every other
// tunable.
type Config struct {
	Tier2Weight float64 // composite weight of the completeness score
	Tier3Weight float64 // composite weight of the spot-check pass rate
	TopShares   [3]float64
	OthersPool  float64
}

// DefaultConfig returns the network defaults: composite 40/60, zone pool
// split 55/30/10 to ranks 1-3 and 5% shared by the remaining eligible.
func DefaultConfig() Config {
	return Config{
		Tier2Weight: 0.40,
		Tier3Weight: 0.60,
		TopShares:   [3]float64{0.55, 0.30, 0.10},
		OthersPool:  0.05,
	}
}

// ConfigFromEnv returns the defaults overridden by SCORING_* env vars.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Tier2Weight = utils.EnvFloat("SCORING_TIER2_WEIGHT", cfg.Tier2Weight)
	cfg.Tier3Weight = utils.EnvFloat("SCORING_TIER3_WEIGHT", cfg.Tier3Weight)
	cfg.OthersPool = utils.EnvFloat("SCORING_OTHERS_POOL", cfg.OthersPool)
	return cfg
}

// RankedMiner is one eligible miner's position in a zone.
type RankedMiner struct {
	MinerID   string  `json:"miner_id"`
	Rank      int     `json:"rank"` // 1-based
	Composite float64 `json:"composite"`
	Share     float64 `json:"share"` // of the zone's reward pool
}

// Scorer is the competitive scoring engine.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger}
}

// Composite folds a verdict's tier scores into one ranking score.
func (s *Scorer) Composite(v *validation.Verdict) float64 {
	return s.cfg.Tier2Weight*v.Tier2Score + s.cfg.Tier3Weight*v.Tier3PassRate
}

// RankZone orders the eligible verdicts of one zone: composite descending,
// earlier submission winning ties. Flagged and ineligible verdicts never
// rank.
func (s *Scorer) RankZone(verdicts []*validation.Verdict) []RankedMiner {
	var eligible []*validation.Verdict
	for _, v := range verdicts {
		if v.Eligible && len(v.Flags) == 0 {
			eligible = append(eligible, v)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		ci, cj := s.Composite(eligible[i]), s.Composite(eligible[j])
		if ci != cj {
			return ci > cj
		}
		if !eligible[i].SubmittedAt.Equal(eligible[j].SubmittedAt) {
			return eligible[i].SubmittedAt.Before(eligible[j].SubmittedAt)
		}
		// Full tie: stable on miner ID so every validator ranks identically.
		return eligible[i].MinerID < eligible[j].MinerID
	})

	ranked := make([]RankedMiner, len(eligible))
	for i, v := range eligible {
		ranked[i] = RankedMiner{
			MinerID:   v.MinerID,
			Rank:      i + 1,
			Composite: s.Composite(v),
		}
	}
	return ranked
}

// DistributeZoneReward assigns each ranked miner its share of the zone pool:
// 55/30/10 to the podium, the others pool split proportionally to composite
// score among everyone ranked 4 and below. With fewer than four miners the
// unclaimed slices simply stay unallocated; epoch-level normalization
// absorbs them.
func (s *Scorer) DistributeZoneReward(ranked []RankedMiner) []RankedMiner {
	out := make([]RankedMiner, len(ranked))
	copy(out, ranked)

	var othersTotal float64
	for i := range out {
		if i < len(s.cfg.TopShares) {
			out[i].Share = s.cfg.TopShares[i]
		} else {
			othersTotal += out[i].Composite
		}
	}
	if othersTotal > 0 {
		for i := len(s.cfg.TopShares); i < len(out); i++ {
			out[i].Share = s.cfg.OthersPool * out[i].Composite / othersTotal
		}
	}
	return out
}

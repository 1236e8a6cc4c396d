// Package validation implements the three-tier submission checker: quantity
// and timeliness, quality and completeness, and the deterministic spot-check
// against ground truth.
package validation

import (
	"context"
	"math"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/groundtruth"
	"github.com/domos-network/domosx/pkg/submission"
)

// MultiTierValidator evaluates submissions. It is safe for concurrent use:
// zone evaluations run as independent tasks and share the lookup pool, whose
// size is the concurrency bound on ground-truth traffic.
type MultiTierValidator struct {
	cfg    Config
	lookup groundtruth.Lookup
	pool   pond.Pool
	logger *zap.Logger
}

// New builds a validator around the given ground-truth lookup.
func New(cfg Config, lookup groundtruth.Lookup, logger *zap.Logger) *MultiTierValidator {
	workers := cfg.LookupWorkers
	if workers <= 0 {
		workers = DefaultConfig().LookupWorkers
	}
	return &MultiTierValidator{
		cfg:    cfg,
		lookup: lookup,
		pool:   pond.NewPool(workers),
		logger: logger,
	}
}

// Stop releases the lookup pool. Call once on shutdown.
func (v *MultiTierValidator) Stop() {
	v.pool.StopAndWait()
}

// Evaluate runs the tiers in order for one submission. Honeypot zones short
// circuit everything: participation itself is the failure. Tier 3 only runs
// when Tiers 1-2 pass, keeping ground-truth traffic proportional to the set
// of submissions that can still win rewards.
func (v *MultiTierValidator) Evaluate(ctx context.Context, ep *epoch.Epoch, zone *epoch.ZoneAssignment, sub *submission.Submission) *Verdict {
	verdict := &Verdict{
		MinerID:     sub.MinerID,
		EpochID:     sub.EpochID,
		ZoneID:      sub.ZoneID,
		SubmittedAt: sub.SubmittedAt,
	}

	if zone.IsHoneypot {
		if sub.ListingCount > 0 || len(sub.Listings) > 0 {
			verdict.Flags = append(verdict.Flags, FlagHoneypotFail)
			v.logger.Warn("Honeypot zone submission",
				zap.String("miner", sub.MinerID),
				zap.String("zone", sub.ZoneID),
				zap.Uint64("epoch", sub.EpochID))
		}
		return verdict
	}

	verdict.Tier1Pass = v.tier1(ep, zone, sub)
	if !verdict.Tier1Pass {
		return verdict
	}

	verdict.Tier2Score = v.tier2(sub)
	if verdict.Tier2Score < v.cfg.Tier2Threshold {
		return verdict
	}

	v.tier3(ctx, ep, sub, verdict)
	if verdict.Tier3Indeterminate {
		return verdict
	}

	verdict.Eligible = verdict.Tier3PassRate >= v.cfg.Tier3Threshold
	return verdict
}

// tier1 checks quantity against the zone target and timeliness against the
// submission deadline. The quantity judged is the manifest's claim, so the
// claim must first match the materialized payload: a manifest claiming more
// listings than it shipped is an incomplete submission, and later tiers only
// ever see the shipped listings. The quantity bound is inclusive: a count
// exactly at expected*(1±tolerance) still passes.
func (v *MultiTierValidator) tier1(ep *epoch.Epoch, zone *epoch.ZoneAssignment, sub *submission.Submission) bool {
	if sub.SubmittedAt.After(ep.SubmissionDeadline) {
		return false
	}
	if sub.ListingCount != len(sub.Listings) {
		v.logger.Warn("Manifest count does not match payload",
			zap.String("miner", sub.MinerID),
			zap.String("zone", sub.ZoneID),
			zap.Int("claimed", sub.ListingCount),
			zap.Int("shipped", len(sub.Listings)))
		return false
	}
	if zone.ExpectedCount <= 0 {
		return false
	}
	deviation := math.Abs(float64(sub.ListingCount-zone.ExpectedCount)) / float64(zone.ExpectedCount)
	return deviation <= zone.Tolerance()
}

// SampleSize returns the Tier-3 sample size for a submission of n listings:
// ceil(rate*n) clamped to [min, max].
func (v *MultiTierValidator) SampleSize(n int) int {
	k := int(math.Ceil(v.cfg.SampleRate * float64(n)))
	if k < v.cfg.SampleMin {
		k = v.cfg.SampleMin
	}
	if k > v.cfg.SampleMax {
		k = v.cfg.SampleMax
	}
	return k
}

// Seed exposes the deterministic spot-check seed for a submission.
func Seed(ep *epoch.Epoch, sub *submission.Submission) int64 {
	return consensus.SpotCheckSeed(ep.Nonce, sub.MinerID, sub.SubmittedAt, sub.ListingCount)
}

package validation

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/submission"
)

type sampleOutcome int

const (
	samplePassed sampleOutcome = iota
	sampleFailed
	sampleUnresolved
)

// tier3 runs the deterministic spot-check. The sample set is derived purely
// from the seed, so every validator verifies the same listings. Lookups fan
// out on the shared pool; each failure degrades that one sample to
// unresolved, never the submission.
func (v *MultiTierValidator) tier3(ctx context.Context, ep *epoch.Epoch, sub *submission.Submission, verdict *Verdict) {
	n := len(sub.Listings)
	if n == 0 {
		verdict.Tier3PassRate = 0
		return
	}

	seed := Seed(ep, sub)
	k := v.SampleSize(sub.ListingCount)
	indices := consensus.SampleIndices(seed, n, k)
	verdict.Tier3SampleIndices = indices

	outcomes := make([]sampleOutcome, len(indices))
	group := v.pool.NewGroup()
	for i, idx := range indices {
		i, idx := i, idx
		group.Submit(func() {
			outcomes[i] = v.checkSample(ctx, &sub.Listings[idx])
		})
	}
	_ = group.Wait()

	var passed, resolved int
	for _, o := range outcomes {
		switch o {
		case samplePassed:
			passed++
			resolved++
		case sampleFailed:
			resolved++
		}
	}

	// Unresolvable samples leave the denominator entirely. When they are the
	// majority there is not enough signal to judge the miner either way.
	if resolved*2 < len(indices) {
		verdict.Tier3Indeterminate = true
		v.logger.Info("Spot-check indeterminate",
			zap.String("miner", sub.MinerID),
			zap.String("zone", sub.ZoneID),
			zap.Int("sampled", len(indices)),
			zap.Int("resolved", resolved))
		return
	}

	verdict.Tier3PassRate = float64(passed) / float64(resolved)
}

// checkSample verifies one sampled listing against ground truth.
func (v *MultiTierValidator) checkSample(ctx context.Context, l *submission.Listing) sampleOutcome {
	ref, err := v.lookup.Fetch(ctx, l.ExternalID)
	if err != nil {
		// NotFound (delisted) and Unavailable (timeout, breaker) both mean
		// the sample cannot be judged.
		return sampleUnresolved
	}
	if v.matches(l, ref) {
		return samplePassed
	}
	return sampleFailed
}

// matches compares a submitted listing with its reference record. Critical
// fields must match exactly; price and freshness carry fixed tolerances so
// that ordinary ground-truth drift between validators cannot split consensus.
func (v *MultiTierValidator) matches(l, ref *submission.Listing) bool {
	if normalize(l.Address) != normalize(ref.Address) {
		return false
	}
	if l.Bedrooms != ref.Bedrooms || l.Bathrooms != ref.Bathrooms {
		return false
	}
	if l.Area != ref.Area {
		return false
	}
	if ref.Price <= 0 {
		return false
	}
	if math.Abs(l.Price-ref.Price)/ref.Price > v.cfg.PriceTolerancePct {
		return false
	}
	drift := l.ListedAt.Sub(ref.ListedAt)
	if drift < 0 {
		drift = -drift
	}
	return drift <= v.cfg.MaxStaleness
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

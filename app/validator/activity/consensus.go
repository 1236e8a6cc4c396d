package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/consensus"
)

// ComputeDigest hashes the epoch's ranked outcomes and persists the result
// so the peer endpoint can serve it before comparison starts.
func (c *Context) ComputeDigest(ctx context.Context, in types.ComputeDigestInput) (types.ComputeDigestOutput, error) {
	start := time.Now()

	var tuples []consensus.RankedOutcome
	for _, zone := range in.Outcomes {
		for _, rm := range zone.Ranked {
			tuples = append(tuples, consensus.RankedOutcome{
				MinerID: rm.MinerID,
				ZoneID:  zone.Zone.ZoneID,
				Rank:    rm.Rank,
				Score:   rm.Composite,
			})
		}
	}

	digest := consensus.ComputeDigest(in.EpochID, tuples)
	if err := c.Store.Put(ctx, DigestKey(in.EpochID), digest.Hex()); err != nil {
		return types.ComputeDigestOutput{}, err
	}

	c.Logger.Info("Outcome digest computed",
		zap.Uint64("epoch", in.EpochID),
		zap.Int("tuples", len(tuples)),
		zap.String("digest", digest.Hex()))

	return types.ComputeDigestOutput{
		Digest:     digest.Hex(),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// CompareDigests polls the peer set and checks the local digest against the
// active majority. A mismatch is a result, not an error: it gates
// publication downstream.
func (c *Context) CompareDigests(ctx context.Context, in types.CompareDigestsInput) (types.CompareDigestsOutput, error) {
	start := time.Now()

	local, err := consensus.ParseDigest(in.Digest)
	if err != nil {
		return types.CompareDigestsOutput{}, err
	}

	peerDigests := c.Peers.FetchDigests(ctx, in.EpochID)
	agreement := consensus.Compare(local, peerDigests)

	hexes := make([]string, len(peerDigests))
	for i, d := range peerDigests {
		hexes[i] = d.Hex()
	}

	if agreement != consensus.Agreed {
		c.Logger.Warn("Consensus mismatch",
			zap.Uint64("epoch", in.EpochID),
			zap.String("local", in.Digest),
			zap.Strings("peers", hexes))
	}

	return types.CompareDigestsOutput{
		Agreement:   agreement,
		PeerDigests: hexes,
		Polled:      c.Peers.PeerCount(),
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

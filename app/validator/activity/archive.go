package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/types"
	models "github.com/domos-network/domosx/pkg/db/models/validator"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/utils"
)

// ArchiveEpoch writes the full evaluation record to ClickHouse: the epoch
// summary, every verdict, the per-zone rankings, the reward vector, the
// consensus comparison and the credibility movements. The archive is for
// operators and audits; evaluation has already produced its results by the
// time this runs.
func (c *Context) ArchiveEpoch(ctx context.Context, in types.ArchiveEpochInput) (types.ArchiveEpochOutput, error) {
	start := time.Now()
	now := time.Now().UTC()

	ep, err := c.Coordinator.Get(ctx, in.EpochID)
	if err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	miners := make(map[string]struct{})
	verdictRows := make([]*models.Verdict, 0, len(in.Verdicts))
	for _, v := range in.Verdicts {
		miners[v.MinerID] = struct{}{}
		flags := make([]string, len(v.Flags))
		for i, f := range v.Flags {
			flags[i] = string(f)
		}
		verdictRows = append(verdictRows, &models.Verdict{
			EpochID:            v.EpochID,
			ZoneID:             v.ZoneID,
			MinerID:            v.MinerID,
			Tier1Pass:          utils.BoolToUInt8(v.Tier1Pass),
			Tier2Score:         v.Tier2Score,
			Tier3PassRate:      v.Tier3PassRate,
			Tier3Indeterminate: utils.BoolToUInt8(v.Tier3Indeterminate),
			Eligible:           utils.BoolToUInt8(v.Eligible),
			Flags:              flags,
			SubmittedAt:        v.SubmittedAt,
		})
	}

	var honeypots uint32
	for _, z := range ep.Zones {
		if z.IsHoneypot {
			honeypots++
		}
	}

	if err := c.Archive.InsertEpoch(ctx, &models.Epoch{
		EpochID:            ep.ID,
		StartsAt:           ep.StartsAt,
		SubmissionDeadline: ep.SubmissionDeadline,
		State:              string(epoch.StateArchived),
		Zones:              uint32(len(ep.Zones)),
		HoneypotZones:      honeypots,
		Submissions:        uint32(len(in.Verdicts)),
		Miners:             uint32(len(miners)),
		Agreement:          string(in.Agreement),
		Digest:             in.LocalDigest,
		ArchivedAt:         now,
	}); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	if err := c.Archive.InsertVerdicts(ctx, verdictRows); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	var rankingRows []*models.ZoneRanking
	for _, zone := range in.Outcomes {
		for _, rm := range zone.Ranked {
			rankingRows = append(rankingRows, &models.ZoneRanking{
				EpochID:   in.EpochID,
				ZoneID:    zone.Zone.ZoneID,
				MinerID:   rm.MinerID,
				Rank:      uint32(rm.Rank),
				Composite: rm.Composite,
				Share:     rm.Share,
			})
		}
	}
	if err := c.Archive.InsertZoneRankings(ctx, rankingRows); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	var rewardRows []*models.RewardWeight
	for minerID, weight := range in.Vector {
		rewardRows = append(rewardRows, &models.RewardWeight{
			EpochID:   in.EpochID,
			MinerID:   minerID,
			Weight:    weight,
			CreatedAt: now,
		})
	}
	if err := c.Archive.InsertRewardVector(ctx, rewardRows); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	outcomesJSON, err := json.Marshal(in.Outcomes)
	if err != nil {
		outcomesJSON = []byte("[]")
	}
	if err := c.Archive.InsertConsensusAudit(ctx, &models.ConsensusAudit{
		EpochID:     in.EpochID,
		Agreement:   string(in.Agreement),
		LocalDigest: in.LocalDigest,
		PeerDigests: in.PeerDigests,
		Outcomes:    string(outcomesJSON),
		RecordedAt:  now,
	}); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	deltaRows := make([]*models.CredibilityDelta, 0, len(in.Updates))
	for _, u := range in.Updates {
		deltaRows = append(deltaRows, &models.CredibilityDelta{
			EpochID:        in.EpochID,
			MinerID:        u.MinerID,
			Outcome:        u.Outcome,
			Score:          u.Score,
			EpochsObserved: uint32(u.EpochsObserved),
			Flagged:        utils.BoolToUInt8(u.Flagged),
			Indeterminate:  utils.BoolToUInt8(u.Indeterminate),
			RecordedAt:     now,
		})
	}
	if err := c.Archive.InsertCredibilityDeltas(ctx, deltaRows); err != nil {
		return types.ArchiveEpochOutput{}, err
	}

	c.Logger.Info("Epoch archived",
		zap.Uint64("epoch", in.EpochID),
		zap.Int("verdicts", len(verdictRows)),
		zap.Int("rankings", len(rankingRows)),
		zap.Int("rewards", len(rewardRows)))

	return types.ArchiveEpochOutput{
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

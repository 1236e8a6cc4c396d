package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/validation"
)

// EvaluateEpochWorkflow runs the full evaluation pipeline for one closed
// epoch. Zone evaluation fans out in parallel; everything downstream of it is
// sequential because each step consumes the whole epoch. Determinism note:
// every ordering-sensitive computation lives in pure code (ranking sorts,
// digest sorts), so the fan-out completion order cannot change the outcome.
func (wc *Context) EvaluateEpochWorkflow(ctx workflow.Context, in types.EvaluateEpochInput) (types.EvaluateEpochOutput, error) {
	out := types.EvaluateEpochOutput{EpochID: in.EpochID}

	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    10,
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         retry,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// 1. Load the epoch and guard against replays, void windows, open windows.
	var begin types.BeginEvaluationOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.BeginEvaluation, in).Get(ctx, &begin); err != nil {
		return out, err
	}
	if begin.Skip {
		out.Skipped = true
		workflow.GetLogger(ctx).Info("Epoch evaluation skipped",
			"epoch", in.EpochID, "reason", begin.SkipReason)
		return out, nil
	}
	ep := begin.Epoch

	// 2. Fan out per-zone evaluation. Zones are independent: each one gathers
	// its own submissions and runs the tier stack.
	futures := make([]workflow.Future, 0, len(ep.Zones))
	for _, zone := range ep.Zones {
		zoneIn := types.EvaluateZoneInput{EpochID: in.EpochID, ZoneID: zone.ZoneID}
		futures = append(futures, workflow.ExecuteActivity(ctx, wc.ActivityContext.EvaluateZone, zoneIn))
	}

	var verdicts []*validation.Verdict
	zoneParticipation := make(map[string]int, len(ep.Zones))
	for i, future := range futures {
		var zoneOut types.EvaluateZoneOutput
		if err := future.Get(ctx, &zoneOut); err != nil {
			return out, err
		}
		verdicts = append(verdicts, zoneOut.Verdicts...)
		if !ep.Zones[i].IsHoneypot {
			zoneParticipation[zoneOut.ZoneID] = zoneOut.Submissions
		}
	}

	miners := make(map[string]struct{}, len(verdicts))
	for _, v := range verdicts {
		miners[v.MinerID] = struct{}{}
	}
	out.Miners = len(miners)

	// 3. Rank and distribute zone rewards.
	var ranked types.RankZonesOutput
	rankIn := types.RankZonesInput{EpochID: in.EpochID, Verdicts: verdicts}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RankZones, rankIn).Get(ctx, &ranked); err != nil {
		return out, err
	}

	// 4. Digest the ranked outcomes and publish it for peers.
	var digest types.ComputeDigestOutput
	digestIn := types.ComputeDigestInput{EpochID: in.EpochID, Outcomes: ranked.Outcomes}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ComputeDigest, digestIn).Get(ctx, &digest); err != nil {
		return out, err
	}

	// 5. Compare against the peer set. Peers evaluate on the same cadence, so
	// give them a moment before polling.
	if err := workflow.Sleep(ctx, peerDigestGrace); err != nil {
		return out, err
	}
	var compared types.CompareDigestsOutput
	compareIn := types.CompareDigestsInput{EpochID: in.EpochID, Digest: digest.Digest}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.CompareDigests, compareIn).Get(ctx, &compared); err != nil {
		return out, err
	}
	out.Agreement = compared.Agreement

	// 6. Credibility moves regardless of consensus: the ledger is local
	// state, only weight publication is consensus-gated.
	var cred types.UpdateCredibilityOutput
	credIn := types.UpdateCredibilityInput{EpochID: in.EpochID, Verdicts: verdicts}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.UpdateCredibility, credIn).Get(ctx, &cred); err != nil {
		return out, err
	}

	// 7. Aggregate the epoch reward vector.
	var agg types.AggregateRewardsOutput
	aggIn := types.AggregateRewardsInput{EpochID: in.EpochID, Outcomes: ranked.Outcomes}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.AggregateRewards, aggIn).Get(ctx, &agg); err != nil {
		return out, err
	}

	// 8. Archive everything.
	archiveIn := types.ArchiveEpochInput{
		EpochID:     in.EpochID,
		Agreement:   compared.Agreement,
		LocalDigest: digest.Digest,
		PeerDigests: compared.PeerDigests,
		Verdicts:    verdicts,
		Outcomes:    ranked.Outcomes,
		Vector:      agg.Vector,
		Updates:     cred.Updates,
	}
	var archived types.ArchiveEpochOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ArchiveEpoch, archiveIn).Get(ctx, &archived); err != nil {
		return out, err
	}

	// 9. Close the lifecycle and hand the result to the publisher.
	finalizeIn := types.FinalizeEpochInput{
		EpochID:           in.EpochID,
		Vector:            agg.Vector,
		Agreement:         compared.Agreement,
		MinersEvaluated:   out.Miners,
		ZoneParticipation: zoneParticipation,
	}
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.FinalizeEpoch, finalizeIn).Get(ctx, nil); err != nil {
		return out, err
	}

	return out, nil
}

// peerDigestGrace is the pause before polling peer digests, giving peers on
// the same cadence time to land theirs.
const peerDigestGrace = 30 * time.Second

package types

import (
	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/validation"
)

// EvaluateEpochInput starts an epoch evaluation workflow.
type EvaluateEpochInput struct {
	EpochID uint64 `json:"epoch_id"`
}

// EvaluateEpochOutput summarizes a finished evaluation.
type EvaluateEpochOutput struct {
	EpochID   uint64              `json:"epoch_id"`
	Skipped   bool                `json:"skipped"`
	Agreement consensus.Agreement `json:"agreement,omitempty"`
	Miners    int                 `json:"miners"`
}

// BeginEvaluationOutput carries the epoch under evaluation, or the reason it
// must be skipped.
type BeginEvaluationOutput struct {
	Epoch      *epoch.Epoch `json:"epoch,omitempty"`
	Skip       bool         `json:"skip"`
	SkipReason string       `json:"skip_reason,omitempty"`
	DurationMs float64      `json:"duration_ms"`
}

// EvaluateZoneInput identifies one zone of one epoch.
type EvaluateZoneInput struct {
	EpochID uint64 `json:"epoch_id"`
	ZoneID  string `json:"zone_id"`
}

// EvaluateZoneOutput is the full verdict set for one zone.
type EvaluateZoneOutput struct {
	ZoneID      string                 `json:"zone_id"`
	Submissions int                    `json:"submissions"`
	Verdicts    []*validation.Verdict  `json:"verdicts"`
	DurationMs  float64                `json:"duration_ms"`
}

// RankZonesInput carries every zone's verdicts into ranking.
type RankZonesInput struct {
	EpochID  uint64                `json:"epoch_id"`
	Verdicts []*validation.Verdict `json:"verdicts"`
}

// RankZonesOutput is the per-zone reward distribution.
type RankZonesOutput struct {
	Outcomes   []scoring.ZoneOutcome `json:"outcomes"`
	DurationMs float64               `json:"duration_ms"`
}

// ComputeDigestInput hashes the ranked outcomes of an epoch.
type ComputeDigestInput struct {
	EpochID  uint64                `json:"epoch_id"`
	Outcomes []scoring.ZoneOutcome `json:"outcomes"`
}

// ComputeDigestOutput carries the hex digest now served to peers.
type ComputeDigestOutput struct {
	Digest     string  `json:"digest"`
	DurationMs float64 `json:"duration_ms"`
}

// CompareDigestsInput checks the local digest against the peer set.
type CompareDigestsInput struct {
	EpochID uint64 `json:"epoch_id"`
	Digest  string `json:"digest"`
}

// CompareDigestsOutput is the consensus comparison result.
type CompareDigestsOutput struct {
	Agreement   consensus.Agreement `json:"agreement"`
	PeerDigests []string            `json:"peer_digests"`
	Polled      int                 `json:"polled"`
	DurationMs  float64             `json:"duration_ms"`
}

// CredibilityUpdate is one miner's ledger movement for the epoch.
type CredibilityUpdate struct {
	MinerID        string  `json:"miner_id"`
	Outcome        float64 `json:"outcome"`
	Score          float64 `json:"score"`
	EpochsObserved int     `json:"epochs_observed"`
	Flagged        bool    `json:"flagged"`
	Indeterminate  bool    `json:"indeterminate"`
}

// UpdateCredibilityInput folds the epoch's verdicts into the ledger.
type UpdateCredibilityInput struct {
	EpochID  uint64                `json:"epoch_id"`
	Verdicts []*validation.Verdict `json:"verdicts"`
}

// UpdateCredibilityOutput reports every ledger movement applied.
type UpdateCredibilityOutput struct {
	Updates    []CredibilityUpdate `json:"updates"`
	DurationMs float64             `json:"duration_ms"`
}

// AggregateRewardsInput folds zone distributions into the epoch vector.
type AggregateRewardsInput struct {
	EpochID  uint64                `json:"epoch_id"`
	Outcomes []scoring.ZoneOutcome `json:"outcomes"`
}

// AggregateRewardsOutput carries the normalized epoch reward vector.
type AggregateRewardsOutput struct {
	Vector     scoring.RewardVector `json:"vector"`
	DurationMs float64              `json:"duration_ms"`
}

// ArchiveEpochInput is everything the ClickHouse archive keeps for an epoch.
type ArchiveEpochInput struct {
	EpochID     uint64                `json:"epoch_id"`
	Agreement   consensus.Agreement   `json:"agreement"`
	LocalDigest string                `json:"local_digest"`
	PeerDigests []string              `json:"peer_digests"`
	Verdicts    []*validation.Verdict `json:"verdicts"`
	Outcomes    []scoring.ZoneOutcome `json:"outcomes"`
	Vector      scoring.RewardVector  `json:"vector"`
	Updates     []CredibilityUpdate   `json:"updates"`
}

// ArchiveEpochOutput reports the archive write timing.
type ArchiveEpochOutput struct {
	DurationMs float64 `json:"duration_ms"`
}

// FinalizeEpochInput closes the epoch lifecycle and hands the result to the
// publisher.
type FinalizeEpochInput struct {
	EpochID           uint64               `json:"epoch_id"`
	Vector            scoring.RewardVector `json:"vector"`
	Agreement         consensus.Agreement  `json:"agreement"`
	MinersEvaluated   int                  `json:"miners_evaluated"`
	ZoneParticipation map[string]int       `json:"zone_participation"`
}

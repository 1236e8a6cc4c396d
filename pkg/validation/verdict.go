package validation

import "time"

// FlagKind marks a hard failure class on a verdict.
type FlagKind string

const (
	// FlagHoneypotFail means the miner submitted listings for a decoy zone.
	// Honeypot zones carry no real inventory, so any participation is
	// fabricated data.
	FlagHoneypotFail FlagKind = "HONEYPOT_FAIL"
	// FlagSyntheticSuspected means the submission's listing set is an exact
	// duplicate of another miner's for the same zone.
	FlagSyntheticSuspected FlagKind = "SYNTHETIC_SUSPECTED"
)

// Verdict is the three-tier outcome for one submission. Computed fresh each
// epoch and never mutated afterwards; per-submission failures live here as
// fields, they are never returned as errors past the validator.
type Verdict struct {
	MinerID string `json:"miner_id"`
	EpochID uint64 `json:"epoch_id"`
	ZoneID  string `json:"zone_id"`

	Tier1Pass          bool    `json:"tier1_pass"`
	Tier2Score         float64 `json:"tier2_score"`
	Tier3SampleIndices []int   `json:"tier3_sample_indices,omitempty"`
	Tier3PassRate      float64 `json:"tier3_pass_rate"`
	// Tier3Indeterminate is set when more than half the spot-check samples
	// were unresolvable; credibility must not move on such a verdict.
	Tier3Indeterminate bool `json:"tier3_indeterminate"`

	Eligible bool       `json:"eligible"`
	Flags    []FlagKind `json:"flags,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// Flagged reports whether the verdict carries the given flag.
func (v *Verdict) Flagged(kind FlagKind) bool {
	for _, f := range v.Flags {
		if f == kind {
			return true
		}
	}
	return false
}

// Penalized reports whether the verdict should apply a credibility penalty
// beyond normal ineligibility. Both flag kinds mean fabricated data, so both
// carry the penalty.
func (v *Verdict) Penalized() bool {
	return len(v.Flags) > 0
}

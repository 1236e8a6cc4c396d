package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/validation"
)

func TestMinerOutcome(t *testing.T) {
	scorer := scoring.New(scoring.DefaultConfig(), zap.NewNop())

	tests := []struct {
		name          string
		verdicts      []*validation.Verdict
		flagged       bool
		indeterminate bool
		score         float64
	}{
		{
			name: "clean eligible verdict scores its composite",
			verdicts: []*validation.Verdict{
				{Eligible: true, Tier2Score: 1.0, Tier3PassRate: 1.0},
			},
			score: 1.0,
		},
		{
			name: "best eligible composite wins across zones",
			verdicts: []*validation.Verdict{
				{Eligible: true, Tier2Score: 0.90, Tier3PassRate: 0.80},
				{Eligible: true, Tier2Score: 1.0, Tier3PassRate: 1.0},
			},
			score: 1.0,
		},
		{
			name: "synthetic flag is a penalty, perfect tiers notwithstanding",
			verdicts: []*validation.Verdict{
				{Eligible: true, Tier2Score: 1.0, Tier3PassRate: 1.0,
					Flags: []validation.FlagKind{validation.FlagSyntheticSuspected}},
			},
			flagged: true,
			score:   0,
		},
		{
			name: "honeypot flag in one zone taints the epoch",
			verdicts: []*validation.Verdict{
				{Eligible: true, Tier2Score: 1.0, Tier3PassRate: 1.0},
				{Flags: []validation.FlagKind{validation.FlagHoneypotFail}},
			},
			flagged: true,
			score:   1.0,
		},
		{
			name: "only indeterminate verdicts leave the ledger alone",
			verdicts: []*validation.Verdict{
				{Tier3Indeterminate: true},
			},
			indeterminate: true,
		},
		{
			name: "ineligible without flags is a plain zero outcome",
			verdicts: []*validation.Verdict{
				{Tier2Score: 0.5},
			},
			score: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := minerOutcome(scorer, tt.verdicts)
			assert.Equal(t, tt.flagged, out.Flagged)
			assert.Equal(t, tt.indeterminate, out.Indeterminate)
			assert.InDelta(t, tt.score, out.Score, 1e-12)
		})
	}
}

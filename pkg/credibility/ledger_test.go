package credibility

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/kv"
)

func newTestLedger(store kv.Store) *Ledger {
	return NewLedger(DefaultConfig(), store, zap.NewNop())
}

func TestUpdateEMA(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	// First observation from zero: 0.2*1.0 + 0.8*0.
	score := l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	assert.InDelta(t, 0.20, score, 1e-12)

	// Second: 0.2*1.0 + 0.8*0.2.
	score = l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	assert.InDelta(t, 0.36, score, 1e-12)

	snap := l.Get(ctx, "miner-a")
	assert.Equal(t, 2, snap.EpochsObserved)
}

func TestUpdateClampsOutcome(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	score := l.Update(ctx, "miner-a", Outcome{Score: 1.8})
	assert.InDelta(t, 0.20, score, 1e-12)

	score = l.Update(ctx, "miner-b", Outcome{Score: -0.3})
	assert.Zero(t, score)
}

func TestUpdatePenalty(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	// Build up some trust first.
	for i := 0; i < 10; i++ {
		l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	}
	before := l.Get(ctx, "miner-a").Score

	// Honeypot hit: alpha 0.5 toward a forced zero outcome, so the score
	// halves regardless of the reported Score.
	score := l.Update(ctx, "miner-a", Outcome{Score: 0.9, Flagged: true})
	assert.InDelta(t, before*0.5, score, 1e-12)
}

func TestUpdateIndeterminateIsNoOp(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	before := l.Get(ctx, "miner-a")

	score := l.Update(ctx, "miner-a", Outcome{Score: 0.5, Indeterminate: true})
	assert.Equal(t, before.Score, score)

	after := l.Get(ctx, "miner-a")
	assert.Equal(t, before.EpochsObserved, after.EpochsObserved)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestMultiplierWarmup(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	// A perfect newcomer stays pinned to the floor for the whole warm-up.
	for i := 0; i < DefaultConfig().WarmupEpochs-1; i++ {
		l.Update(ctx, "miner-a", Outcome{Score: 1.0})
		assert.Equal(t, DefaultConfig().Floor, l.Multiplier(ctx, "miner-a"), "epoch %d", i)
	}

	// One more epoch completes the warm-up and the real curve takes over.
	l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	snap := l.Get(ctx, "miner-a")
	expected := math.Pow(snap.Score, DefaultConfig().Gamma)
	assert.InDelta(t, expected, l.Multiplier(ctx, "miner-a"), 1e-12)
	assert.Greater(t, l.Multiplier(ctx, "miner-a"), DefaultConfig().Floor)
}

func TestMultiplierFloor(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	// Past warm-up with a weak score: 0.2^2.5 ≈ 0.018 sits below the floor.
	for i := 0; i < DefaultConfig().WarmupEpochs; i++ {
		l.Update(ctx, "miner-a", Outcome{Score: 0.2})
	}
	snap := l.Get(ctx, "miner-a")
	require.Less(t, math.Pow(snap.Score, DefaultConfig().Gamma), DefaultConfig().Floor)
	assert.Equal(t, DefaultConfig().Floor, l.Multiplier(ctx, "miner-a"))
}

func TestMultiplierSuppressesSuperLinearly(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	warm := func(minerID string, outcome float64) {
		for i := 0; i < DefaultConfig().WarmupEpochs*4; i++ {
			l.Update(ctx, minerID, Outcome{Score: outcome})
		}
	}
	warm("miner-strong", 1.0)
	warm("miner-decent", 0.8)

	strong := l.Multiplier(ctx, "miner-strong")
	decent := l.Multiplier(ctx, "miner-decent")

	// Scores converge near 1.0 and 0.8; gamma stretches that 20% gap.
	ratio := strong / decent
	assert.Greater(t, ratio, 1.5)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	l := newTestLedger(store)
	for i := 0; i < 5; i++ {
		l.Update(ctx, "miner-a", Outcome{Score: 0.9})
	}
	before := l.Get(ctx, "miner-a")

	// A fresh ledger over the same store resumes with the same state.
	restarted := newTestLedger(store)
	after := restarted.Get(ctx, "miner-a")
	assert.InDelta(t, before.Score, after.Score, 1e-12)
	assert.Equal(t, before.EpochsObserved, after.EpochsObserved)
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(kv.NewMemory())

	l.Update(ctx, "miner-a", Outcome{Score: 1.0})
	l.Update(ctx, "miner-b", Outcome{Score: 0.5})

	snaps := l.All()
	require.Len(t, snaps, 2)
	miners := map[string]bool{}
	for _, s := range snaps {
		miners[s.MinerID] = true
	}
	assert.True(t, miners["miner-a"])
	assert.True(t, miners["miner-b"])
}

// Package publisher turns a completed epoch's reward vector into an
// on-chain weight submission, gated so that disagreement, thin
// participation, or a cold process can never corrupt the weight ledger.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/chainclient"
	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// State is the publisher's lifecycle state.
type State string

const (
	StateWarmingUp  State = "WARMING_UP"
	StateReady      State = "READY"
	StatePublishing State = "PUBLISHING"
	StateWithheld   State = "WITHHELD"
)

const lastPublishedKey = "weights:last"

// Config carries the publication gates.
type Config struct {
	// WarmupCycles is the number of completed evaluation cycles required
	// since process start before any publication. Mirrors the credibility
	// warm-up at the publisher level: never set weights from a cold,
	// data-poor state.
	WarmupCycles int
	// MinMinersTotal is the participation floor across the whole epoch.
	MinMinersTotal int
	// MinMinersPerZone is the per-zone participation floor.
	MinMinersPerZone int
}

func DefaultConfig() Config {
	return Config{
		WarmupCycles:     15,
		MinMinersTotal:   5,
		MinMinersPerZone: 3,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.WarmupCycles = utils.EnvInt("PUBLISHER_WARMUP_CYCLES", cfg.WarmupCycles)
	cfg.MinMinersTotal = utils.EnvInt("PUBLISHER_MIN_MINERS", cfg.MinMinersTotal)
	cfg.MinMinersPerZone = utils.EnvInt("PUBLISHER_MIN_MINERS_PER_ZONE", cfg.MinMinersPerZone)
	return cfg
}

// EpochResult is what an evaluation cycle hands to the publisher.
type EpochResult struct {
	EpochID           uint64               `json:"epoch_id"`
	Vector            scoring.RewardVector `json:"vector"`
	Agreement         consensus.Agreement  `json:"agreement"`
	MinersEvaluated   int                  `json:"miners_evaluated"`
	ZoneParticipation map[string]int       `json:"zone_participation"` // non-honeypot zones only
}

// lastPublished is the persisted record of the most recent submission.
type lastPublished struct {
	EpochID uint64               `json:"epoch_id"`
	Vector  scoring.RewardVector `json:"vector"`
}

// Publisher is the weight publication state machine. Its tick runs on the
// chain cadence, decoupled from and never blocking on epoch evaluation; the
// single mutex guarantees a re-entered tick cannot double-submit.
type Publisher struct {
	cfg    Config
	chain  chainclient.Client
	store  kv.Store
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	cyclesSeen int
	pending    *EpochResult
	last       *lastPublished
}

func New(cfg Config, chain chainclient.Client, store kv.Store, logger *zap.Logger) *Publisher {
	return &Publisher{
		cfg:    cfg,
		chain:  chain,
		store:  store,
		logger: logger,
		state:  StateWarmingUp,
	}
}

// Restore loads the last published vector so a restarted validator knows
// what is currently in effect on-chain.
func (p *Publisher) Restore(ctx context.Context) error {
	raw, err := p.store.Get(ctx, lastPublishedKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	}
	var lp lastPublished
	if err := json.Unmarshal([]byte(raw), &lp); err != nil {
		return fmt.Errorf("decode last published vector: %w", err)
	}
	p.mu.Lock()
	p.last = &lp
	p.mu.Unlock()
	return nil
}

// State returns the current publisher state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastPublished returns the epoch and vector currently in effect, or false
// when nothing was ever published.
func (p *Publisher) LastPublished() (uint64, scoring.RewardVector, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return 0, nil, false
	}
	return p.last.EpochID, p.last.Vector, true
}

// OnEpochEvaluated records a finished evaluation cycle. Called by the
// evaluation path; must never block on a publication in flight, hence only
// the brief mutex hold.
func (p *Publisher) OnEpochEvaluated(res EpochResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cyclesSeen++
	p.pending = &res
	if p.state == StateWarmingUp && p.cyclesSeen >= p.cfg.WarmupCycles {
		p.state = StateReady
		p.logger.Info("Publisher warm-up complete",
			zap.Int("cycles", p.cyclesSeen))
	}
}

// Tick is the scheduled publication pass, aligned to the chain's own
// cadence. It submits at most once per tick; when a gate fails the state
// moves to WITHHELD and the previously published vector stays in effect.
func (p *Publisher) Tick(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateWarmingUp {
		p.mu.Unlock()
		return nil
	}
	if p.state == StatePublishing {
		// Re-entered while a submission is in flight.
		p.mu.Unlock()
		return nil
	}

	res := p.pending
	if res == nil {
		p.mu.Unlock()
		return nil
	}
	if reason := p.gate(res); reason != "" {
		p.state = StateWithheld
		p.mu.Unlock()
		p.logger.Warn("Weight publication withheld",
			zap.Uint64("epoch", res.EpochID),
			zap.String("reason", reason))
		return nil
	}
	p.state = StatePublishing
	p.mu.Unlock()

	err := p.publish(ctx, res)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateReady
		return err
	}
	p.pending = nil
	p.state = StateReady
	return nil
}

// gate returns the reason a result must not be published, or "".
func (p *Publisher) gate(res *EpochResult) string {
	if res.Agreement != consensus.Agreed {
		return "consensus mismatch"
	}
	if len(res.Vector) == 0 {
		return "void reward vector"
	}
	if res.MinersEvaluated < p.cfg.MinMinersTotal {
		return fmt.Sprintf("participation below floor: %d < %d", res.MinersEvaluated, p.cfg.MinMinersTotal)
	}
	for zoneID, n := range res.ZoneParticipation {
		if n < p.cfg.MinMinersPerZone {
			return fmt.Sprintf("zone %s participation below floor: %d < %d", zoneID, n, p.cfg.MinMinersPerZone)
		}
	}
	return ""
}

// publish normalizes and submits the vector, then records it as the one in
// effect.
func (p *Publisher) publish(ctx context.Context, res *EpochResult) error {
	vector := res.Vector.Normalized()
	if sum := vector.Sum(); math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("refusing to publish epoch %d: vector sums to %g", res.EpochID, sum)
	}

	if err := p.chain.SubmitWeights(ctx, vector); err != nil {
		return fmt.Errorf("submit weights for epoch %d: %w", res.EpochID, err)
	}

	lp := &lastPublished{EpochID: res.EpochID, Vector: vector}
	if raw, err := json.Marshal(lp); err == nil {
		if err := p.store.Put(ctx, lastPublishedKey, string(raw)); err != nil {
			p.logger.Warn("Persist last published vector", zap.Error(err))
		}
	}

	p.mu.Lock()
	p.last = lp
	p.mu.Unlock()

	p.logger.Info("Weights published",
		zap.Uint64("epoch", res.EpochID),
		zap.Int("miners", len(vector)))
	return nil
}

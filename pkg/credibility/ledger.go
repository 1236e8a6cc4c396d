// Package credibility tracks the slow-moving per-miner trust score that
// weighs rewards. Scores move by EMA once per epoch per miner, never reset,
// and are suppressed super-linearly downstream so consistency beats one-off
// performance.
package credibility

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config carries the ledger tunables. Deployment parameters, env-overridable.
type Config struct {
	Alpha        float64 // EMA smoothing for normal epoch outcomes
	PenaltyAlpha float64 // heavier smoothing applied on flagged outcomes
	Gamma        float64 // super-linear exponent for the reward multiplier
	Floor        float64 // minimal multiplier any observed miner retains
	WarmupEpochs int     // epochs observed before credibility can exceed the floor
}

// DefaultConfig returns the network defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:        0.20,
		PenaltyAlpha: 0.50,
		Gamma:        2.5,
		Floor:        0.05,
		WarmupEpochs: 15,
	}
}

// ConfigFromEnv returns the defaults overridden by CREDIBILITY_* env vars.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Alpha = utils.EnvFloat("CREDIBILITY_ALPHA", cfg.Alpha)
	cfg.PenaltyAlpha = utils.EnvFloat("CREDIBILITY_PENALTY_ALPHA", cfg.PenaltyAlpha)
	cfg.Gamma = utils.EnvFloat("CREDIBILITY_GAMMA", cfg.Gamma)
	cfg.Floor = utils.EnvFloat("CREDIBILITY_FLOOR", cfg.Floor)
	cfg.WarmupEpochs = utils.EnvInt("CREDIBILITY_WARMUP_EPOCHS", cfg.WarmupEpochs)
	return cfg
}

// Outcome is one miner's epoch result as seen by the ledger.
type Outcome struct {
	// Score is the best eligible zone performance in [0,1]; zero for
	// ineligible or flagged miners.
	Score float64
	// Flagged applies the penalty smoothing (honeypot).
	Flagged bool
	// Indeterminate leaves the record untouched this epoch.
	Indeterminate bool
}

// Record is the persistent per-miner state. The embedded mutex gives
// per-miner update atomicity; unrelated miners never contend.
type Record struct {
	mu             sync.Mutex
	MinerID        string    `json:"miner_id"`
	Score          float64   `json:"score"`
	EpochsObserved int       `json:"epochs_observed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Snapshot is a copy of a record safe to hand out.
type Snapshot struct {
	MinerID        string    `json:"miner_id"`
	Score          float64   `json:"score"`
	EpochsObserved int       `json:"epochs_observed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ledger is the concurrent credibility store. Records live in an xsync map
// keyed by miner and are written through to the key-value store on every
// update so a restarted validator resumes with the same trust state.
type Ledger struct {
	cfg     Config
	records *xsync.Map[string, *Record]
	store   kv.Store
	logger  *zap.Logger
}

func NewLedger(cfg Config, store kv.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		cfg:     cfg,
		records: xsync.NewMap[string, *Record](),
		store:   store,
		logger:  logger,
	}
}

func recordKey(minerID string) string { return "credibility:" + minerID }

// record returns the live record for a miner, loading it from the store or
// creating a zero-score one on first sight.
func (l *Ledger) record(ctx context.Context, minerID string) *Record {
	if r, ok := l.records.Load(minerID); ok {
		return r
	}

	fresh := &Record{MinerID: minerID}
	if raw, err := l.store.Get(ctx, recordKey(minerID)); err == nil {
		if err := json.Unmarshal([]byte(raw), fresh); err != nil {
			l.logger.Warn("Corrupt credibility record, starting fresh",
				zap.String("miner", minerID), zap.Error(err))
			fresh = &Record{MinerID: minerID}
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		l.logger.Warn("Credibility store read failed",
			zap.String("miner", minerID), zap.Error(err))
	}

	actual, _ := l.records.LoadOrStore(minerID, fresh)
	return actual
}

// Update folds one epoch outcome into the miner's score and returns the new
// value. Indeterminate epochs fall back to the prior score without touching
// the observation count.
func (l *Ledger) Update(ctx context.Context, minerID string, o Outcome) float64 {
	r := l.record(ctx, minerID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.Indeterminate {
		return r.Score
	}

	alpha := l.cfg.Alpha
	outcome := o.Score
	if o.Flagged {
		alpha = l.cfg.PenaltyAlpha
		outcome = 0
	}
	if outcome < 0 {
		outcome = 0
	}
	if outcome > 1 {
		outcome = 1
	}

	prev := r.Score
	r.Score = alpha*outcome + (1-alpha)*r.Score
	r.EpochsObserved++
	r.UpdatedAt = time.Now().UTC()

	l.persist(ctx, r)

	l.logger.Debug("Credibility updated",
		zap.String("miner", minerID),
		zap.Float64("outcome", outcome),
		zap.Float64("prev", prev),
		zap.Float64("score", r.Score),
		zap.Bool("flagged", o.Flagged))
	return r.Score
}

// persist writes through to the KV store; the in-memory record stays
// authoritative if the write fails.
func (l *Ledger) persist(ctx context.Context, r *Record) {
	raw, err := json.Marshal(r)
	if err != nil {
		l.logger.Error("Marshal credibility record", zap.Error(err))
		return
	}
	if err := l.store.Put(ctx, recordKey(r.MinerID), string(raw)); err != nil {
		l.logger.Warn("Persist credibility record",
			zap.String("miner", r.MinerID), zap.Error(err))
	}
}

// Multiplier returns the reward multiplier for a miner: score^gamma with a
// floor, pinned to the floor until the warm-up count of observed epochs is
// reached so a fresh identity cannot claim top rewards on a lucky first
// epoch.
func (l *Ledger) Multiplier(ctx context.Context, minerID string) float64 {
	r := l.record(ctx, minerID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.EpochsObserved < l.cfg.WarmupEpochs {
		return l.cfg.Floor
	}
	m := math.Pow(r.Score, l.cfg.Gamma)
	if m < l.cfg.Floor {
		return l.cfg.Floor
	}
	return m
}

// Get returns a snapshot of one miner's record.
func (l *Ledger) Get(ctx context.Context, minerID string) Snapshot {
	r := l.record(ctx, minerID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		MinerID:        r.MinerID,
		Score:          r.Score,
		EpochsObserved: r.EpochsObserved,
		UpdatedAt:      r.UpdatedAt,
	}
}

// All returns snapshots of every record currently in memory.
func (l *Ledger) All() []Snapshot {
	var out []Snapshot
	l.records.Range(func(_ string, r *Record) bool {
		r.mu.Lock()
		out = append(out, Snapshot{
			MinerID:        r.MinerID,
			Score:          r.Score,
			EpochsObserved: r.EpochsObserved,
			UpdatedAt:      r.UpdatedAt,
		})
		r.mu.Unlock()
		return true
	})
	return out
}

// String implements fmt.Stringer for debug logs.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s score=%.4f observed=%d", s.MinerID, s.Score, s.EpochsObserved)
}

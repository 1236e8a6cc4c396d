package validation

import (
	"time"

	"github.com/domos-network/domosx/pkg/utils"
)

// Config carries the validation thresholds. The numbers below are the
// network defaults; they are deployment parameters, not invariants, so every
// one of them can be overridden from the environment.
type Config struct {
	// Tier 2
	Tier2Threshold float64 // minimum completeness score for eligibility
	MaxBedrooms    int
	MaxBathrooms   float64
	MaxArea        float64

	// Tier 3
	Tier3Threshold    float64       // minimum spot-check pass rate
	SampleRate        float64       // fraction of listings sampled
	SampleMin         int           // lower clamp on sample size
	SampleMax         int           // upper clamp on sample size
	PriceTolerancePct float64       // relative price drift tolerated
	MaxStaleness      time.Duration // listed_at drift tolerated
	LookupWorkers     int           // concurrent ground-truth lookups
}

// DefaultConfig returns the network defaults.
func DefaultConfig() Config {
	return Config{
		Tier2Threshold:    0.90,
		MaxBedrooms:       20,
		MaxBathrooms:      20,
		MaxArea:           100_000,
		Tier3Threshold:    0.80,
		SampleRate:        0.10,
		SampleMin:         5,
		SampleMax:         50,
		PriceTolerancePct: 0.05,
		MaxStaleness:      7 * 24 * time.Hour,
		LookupWorkers:     8,
	}
}

// ConfigFromEnv returns the defaults overridden by VALIDATION_* env vars.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Tier2Threshold = utils.EnvFloat("VALIDATION_TIER2_THRESHOLD", cfg.Tier2Threshold)
	cfg.Tier3Threshold = utils.EnvFloat("VALIDATION_TIER3_THRESHOLD", cfg.Tier3Threshold)
	cfg.SampleRate = utils.EnvFloat("VALIDATION_SAMPLE_RATE", cfg.SampleRate)
	cfg.SampleMin = utils.EnvInt("VALIDATION_SAMPLE_MIN", cfg.SampleMin)
	cfg.SampleMax = utils.EnvInt("VALIDATION_SAMPLE_MAX", cfg.SampleMax)
	cfg.PriceTolerancePct = utils.EnvFloat("VALIDATION_PRICE_TOLERANCE_PCT", cfg.PriceTolerancePct)
	cfg.MaxStaleness = utils.EnvDuration("VALIDATION_MAX_STALENESS", cfg.MaxStaleness)
	cfg.LookupWorkers = utils.EnvInt("VALIDATION_LOOKUP_WORKERS", cfg.LookupWorkers)
	return cfg
}

package epoch

import (
	"time"

	"github.com/domos-network/domosx/pkg/utils"
)

// State is the lifecycle state of an epoch.
type State string

const (
	StatePending   State = "PENDING"
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateArchived  State = "ARCHIVED"
	// StateVoid marks an epoch whose assignment never resolved; it has no
	// weight impact and is skipped by evaluation.
	StateVoid State = "VOID"
)

// DefaultDuration is the length of one competitive mining window.
const DefaultDuration = 4 * time.Hour

// ZoneAssignment is one geographic unit inside an epoch. Honeypot zones are
// decoys: miners never receive them as real work, so any submission against
// one is synthetic by construction.
type ZoneAssignment struct {
	ZoneID        string  `json:"zone_id"`
	ExpectedCount int     `json:"expected_count"`
	TolerancePct  float64 `json:"tolerance_pct"`
	IsHoneypot    bool    `json:"is_honeypot"`
}

// Tolerance returns the zone's count tolerance, falling back to the
// deployment default when the assignment omits it.
func (z ZoneAssignment) Tolerance() float64 {
	if z.TolerancePct > 0 {
		return z.TolerancePct
	}
	return utils.EnvFloat("ZONE_TOLERANCE_PCT", 0.10)
}

// Epoch is a fixed-duration competitive window. The nonce and zone list are
// fixed by the assignment service at creation and identical for every
// validator; they must never change once the epoch is ACTIVE.
type Epoch struct {
	ID                 uint64           `json:"epoch_id"`
	Nonce              []byte           `json:"nonce"`
	Zones              []ZoneAssignment `json:"zones"`
	StartsAt           time.Time        `json:"starts_at"`
	SubmissionDeadline time.Time        `json:"submission_deadline"`
	State              State            `json:"state"`
}

// Zone returns the assignment for the given zone ID, or nil when the zone is
// not part of this epoch.
func (e *Epoch) Zone(zoneID string) *ZoneAssignment {
	for i := range e.Zones {
		if e.Zones[i].ZoneID == zoneID {
			return &e.Zones[i]
		}
	}
	return nil
}

// Due reports whether the submission deadline has passed at the given time.
func (e *Epoch) Due(now time.Time) bool {
	return !now.Before(e.SubmissionDeadline)
}

// validTransitions encodes the only allowed lifecycle moves. Anything else is
// a replay or an out-of-order evaluation and must be refused.
var validTransitions = map[State][]State{
	StatePending:   {StateActive, StateVoid},
	StateActive:    {StateCompleted, StateVoid},
	StateCompleted: {StateArchived},
}

// CanTransition reports whether moving from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

package epoch

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrAlreadyProcessed is returned when an epoch transition was already
// applied; callers treat it as "someone else got here first", not a failure.
var ErrAlreadyProcessed = errors.New("epoch: already processed")

// WindowID derives the canonical epoch ID from a point in time: the number
// of whole epoch windows since the Unix epoch. Identical on every validator
// by construction.
func WindowID(t time.Time) uint64 {
	return uint64(t.UTC().Unix()) / uint64(DefaultDuration/time.Second)
}

// WindowStart returns the wall-clock start of the window with the given ID.
func WindowStart(id uint64) time.Time {
	return time.Unix(int64(id)*int64(DefaultDuration/time.Second), 0).UTC()
}

// AssignmentSource supplies epoch descriptions. Satisfied by the assignment
// service client.
type AssignmentSource interface {
	CurrentEpoch(ctx context.Context, at time.Time) (*Epoch, error)
}

// Coordinator owns the epoch lifecycle: it ingests assignments, enforces
// deadlines, and guards every transition behind the persisted state so an
// epoch is never processed twice.
type Coordinator struct {
	assignments AssignmentSource
	store       kv.Store
	logger      *zap.Logger
	retryCfg    retry.Config
}

func NewCoordinator(assignments AssignmentSource, store kv.Store, logger *zap.Logger) *Coordinator {
	// Bounded: one tick's retries must finish well inside a window.
	cfg := retry.Config{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
	return &Coordinator{assignments: assignments, store: store, logger: logger, retryCfg: cfg}
}

func epochKey(id uint64) string { return fmt.Sprintf("epoch:%d", id) }

// Get loads a persisted epoch.
func (c *Coordinator) Get(ctx context.Context, id uint64) (*Epoch, error) {
	raw, err := c.store.Get(ctx, epochKey(id))
	if err != nil {
		return nil, err
	}
	var e Epoch
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode epoch %d: %w", id, err)
	}
	return &e, nil
}

func (c *Coordinator) put(ctx context.Context, e *Epoch) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, epochKey(e.ID), string(raw))
}

// EnsureCurrent makes sure the window covering `now` has a persisted epoch.
// When the assignment service cannot be reached it retries with bounded
// backoff and otherwise returns an error for the next tick to retry; voiding
// an unresolved window happens once the window closes, in DueForEvaluation.
func (c *Coordinator) EnsureCurrent(ctx context.Context, now time.Time) (*Epoch, error) {
	windowID := WindowID(now)
	if e, err := c.Get(ctx, windowID); err == nil {
		return e, nil
	} else if !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}

	var fetched *Epoch
	err := retry.WithBackoff(ctx, c.retryCfg, c.logger, "assignment_fetch", func() error {
		e, ferr := c.assignments.CurrentEpoch(ctx, now)
		if ferr != nil {
			return ferr
		}
		fetched = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assignment unavailable for window %d: %w", windowID, err)
	}

	fetched.State = StateActive
	if err := c.put(ctx, fetched); err != nil {
		return nil, err
	}
	c.logger.Info("Epoch activated",
		zap.Uint64("epoch", fetched.ID),
		zap.Int("zones", len(fetched.Zones)),
		zap.Time("deadline", fetched.SubmissionDeadline))
	return fetched, nil
}

// voidWindow records a VOID epoch for a window whose assignment never
// resolved. No weight impact; evaluation skips it.
func (c *Coordinator) voidWindow(ctx context.Context, windowID uint64, cause error) (*Epoch, error) {
	start := WindowStart(windowID)
	e := &Epoch{
		ID:                 windowID,
		StartsAt:           start,
		SubmissionDeadline: start.Add(DefaultDuration),
		State:              StateVoid,
	}
	if err := c.put(ctx, e); err != nil {
		return nil, err
	}
	c.logger.Error("Epoch voided: assignment never resolved",
		zap.Uint64("epoch", windowID),
		zap.Error(cause))
	return e, nil
}

// transition applies a guarded state change and persists it.
func (c *Coordinator) transition(ctx context.Context, id uint64, to State) (*Epoch, error) {
	e, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.State == to {
		return e, ErrAlreadyProcessed
	}
	if !CanTransition(e.State, to) {
		return e, fmt.Errorf("%w: epoch %d is %s, wanted %s", ErrAlreadyProcessed, id, e.State, to)
	}
	e.State = to
	if err := c.put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Complete marks an ACTIVE epoch COMPLETED once its deadline has passed.
// Idempotent via the persisted state: a second caller gets
// ErrAlreadyProcessed and must not evaluate again. This is also the
// idempotency guard against a late-finishing evaluation of a window that
// already advanced.
func (c *Coordinator) Complete(ctx context.Context, id uint64, now time.Time) (*Epoch, error) {
	e, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Due(now) {
		return nil, fmt.Errorf("epoch %d deadline not reached", id)
	}
	return c.transition(ctx, id, StateCompleted)
}

// Archive marks a COMPLETED epoch ARCHIVED after scoring is persisted.
func (c *Coordinator) Archive(ctx context.Context, id uint64) (*Epoch, error) {
	return c.transition(ctx, id, StateArchived)
}

// DueForEvaluation returns the previous window's epoch when it is ACTIVE and
// past its deadline. The cron tick calls this every minute; most ticks
// return nil. A previous window with no persisted epoch is one whose
// assignment never resolved before it closed: it is voided here so it can
// never activate or influence weights later.
func (c *Coordinator) DueForEvaluation(ctx context.Context, now time.Time) (*Epoch, error) {
	prev := WindowID(now) - 1
	e, err := c.Get(ctx, prev)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			if _, verr := c.voidWindow(ctx, prev, errors.New("assignment never resolved")); verr != nil {
				return nil, verr
			}
			return nil, nil
		}
		return nil, err
	}
	if e.State == StateActive && e.Due(now) {
		return e, nil
	}
	return nil, nil
}

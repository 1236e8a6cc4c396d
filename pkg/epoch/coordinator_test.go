package epoch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/kv"
)

// fakeAssignments serves canned epochs, or fails when down.
type fakeAssignments struct {
	calls int
	down  bool
}

func (f *fakeAssignments) CurrentEpoch(_ context.Context, at time.Time) (*Epoch, error) {
	f.calls++
	if f.down {
		return nil, errors.New("assignment service unavailable")
	}
	id := WindowID(at)
	start := WindowStart(id)
	return &Epoch{
		ID:                 id,
		Nonce:              []byte("nonce"),
		Zones:              []ZoneAssignment{{ZoneID: "94110", ExpectedCount: 100, TolerancePct: 0.10}},
		StartsAt:           start,
		SubmissionDeadline: start.Add(DefaultDuration),
		State:              StatePending,
	}, nil
}

func newTestCoordinator(assignments *fakeAssignments) *Coordinator {
	c := NewCoordinator(assignments, kv.NewMemory(), zap.NewNop())
	// No point backing off against an in-memory fake.
	c.retryCfg.MaxRetries = 1
	c.retryCfg.InitialDelay = time.Millisecond
	c.retryCfg.MaxDelay = time.Millisecond
	return c
}

func TestWindowID(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		expected uint64
	}{
		{name: "unix epoch", at: time.Unix(0, 0), expected: 0},
		{name: "one second before second window", at: time.Unix(14399, 0), expected: 0},
		{name: "second window starts", at: time.Unix(14400, 0), expected: 1},
		{name: "timezone does not matter", at: time.Unix(14400, 0).In(time.FixedZone("X", 3600)), expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WindowID(tt.at))
		})
	}
}

func TestWindowStartRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	id := WindowID(now)
	start := WindowStart(id)
	assert.False(t, start.After(now))
	assert.True(t, now.Before(start.Add(DefaultDuration)))
	assert.Equal(t, id, WindowID(start))
}

func TestEnsureCurrentActivatesAndCaches(t *testing.T) {
	ctx := context.Background()
	assignments := &fakeAssignments{}
	c := newTestCoordinator(assignments)
	now := time.Now().UTC()

	e, err := c.EnsureCurrent(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, e.State)
	assert.Equal(t, WindowID(now), e.ID)
	assert.Equal(t, 1, assignments.calls)

	// Second tick in the same window hits the store, not the service.
	again, err := c.EnsureCurrent(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID)
	assert.Equal(t, 1, assignments.calls)
}

func TestUnresolvedWindowIsVoidedOnceClosed(t *testing.T) {
	ctx := context.Background()
	assignments := &fakeAssignments{down: true}
	c := newTestCoordinator(assignments)

	// Assignment never resolves while the window is open: every tick errors
	// and nothing is persisted.
	during := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := c.EnsureCurrent(ctx, during)
	assert.Error(t, err)
	_, err = c.Get(ctx, WindowID(during))
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// The first tick of the next window finds the unresolved window closed:
	// it voids it and reports nothing due.
	next := during.Add(DefaultDuration)
	due, err := c.DueForEvaluation(ctx, next)
	require.NoError(t, err)
	assert.Nil(t, due)

	stored, err := c.Get(ctx, WindowID(during))
	require.NoError(t, err)
	assert.Equal(t, StateVoid, stored.State)

	// Voided is terminal: a late assignment cannot resurrect the window.
	assignments.down = false
	again, err := c.EnsureCurrent(ctx, during)
	require.NoError(t, err)
	assert.Equal(t, StateVoid, again.State)
}

func TestCompleteLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(&fakeAssignments{})

	now := time.Now().UTC()
	e, err := c.EnsureCurrent(ctx, now)
	require.NoError(t, err)

	t.Run("before the deadline completion is refused", func(t *testing.T) {
		_, err := c.Complete(ctx, e.ID, now)
		assert.Error(t, err)
	})

	after := e.SubmissionDeadline.Add(time.Minute)

	t.Run("after the deadline it completes", func(t *testing.T) {
		done, err := c.Complete(ctx, e.ID, after)
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, done.State)
	})

	t.Run("a second completion reports already processed", func(t *testing.T) {
		_, err := c.Complete(ctx, e.ID, after)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("archive and replay", func(t *testing.T) {
		archived, err := c.Archive(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, StateArchived, archived.State)

		_, err = c.Archive(ctx, e.ID)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})
}

func TestDueForEvaluation(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(&fakeAssignments{})

	now := time.Now().UTC()
	prev := now.Add(-DefaultDuration)
	e, err := c.EnsureCurrent(ctx, prev)
	require.NoError(t, err)

	t.Run("previous active window is due", func(t *testing.T) {
		due, err := c.DueForEvaluation(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, due)
		assert.Equal(t, e.ID, due.ID)
	})

	t.Run("completed window is no longer due", func(t *testing.T) {
		_, err := c.Complete(ctx, e.ID, now)
		require.NoError(t, err)

		due, err := c.DueForEvaluation(ctx, now)
		require.NoError(t, err)
		assert.Nil(t, due)
	})

	t.Run("unknown previous window voids instead of evaluating", func(t *testing.T) {
		fresh := newTestCoordinator(&fakeAssignments{})
		due, err := fresh.DueForEvaluation(ctx, now)
		require.NoError(t, err)
		assert.Nil(t, due)

		stored, err := fresh.Get(ctx, WindowID(now)-1)
		require.NoError(t, err)
		assert.Equal(t, StateVoid, stored.State)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     State
		to       State
		expected bool
	}{
		{StatePending, StateActive, true},
		{StatePending, StateVoid, true},
		{StateActive, StateCompleted, true},
		{StateActive, StateVoid, true},
		{StateCompleted, StateArchived, true},
		{StateActive, StateArchived, false},
		{StateCompleted, StateActive, false},
		{StateArchived, StateActive, false},
		{StateVoid, StateActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestZoneLookupAndTolerance(t *testing.T) {
	e := &Epoch{Zones: []ZoneAssignment{
		{ZoneID: "94110", ExpectedCount: 100, TolerancePct: 0.15},
		{ZoneID: "94121", ExpectedCount: 50},
	}}

	require.NotNil(t, e.Zone("94110"))
	assert.Equal(t, 0.15, e.Zone("94110").Tolerance())
	assert.Nil(t, e.Zone("nope"))

	// Zones without an explicit tolerance fall back to the default.
	assert.Equal(t, 0.10, e.Zone("94121").Tolerance())
}

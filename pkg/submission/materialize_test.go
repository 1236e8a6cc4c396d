package submission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/storage"
)

var deadline = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func putSubmission(t *testing.T, store *storage.Memory, m Manifest, listings []Listing) {
	t.Helper()
	prefix := fmt.Sprintf("%s%s/", Prefix(m.EpochID, m.ZoneID), m.MinerID)

	manifest, err := json.Marshal(m)
	require.NoError(t, err)
	store.Put(prefix+"manifest.json", manifest)

	if listings != nil {
		payload, err := json.Marshal(listings)
		require.NoError(t, err)
		store.Put(prefix+"listings.json", payload)
	}
}

func manifestFor(minerID string) Manifest {
	return Manifest{
		MinerID:        minerID,
		EpochID:        4211,
		ZoneID:         "94110",
		ListingCount:   2,
		SubmittedAt:    deadline.Add(-time.Hour),
		UploadComplete: true,
	}
}

func sampleListings() []Listing {
	return []Listing{
		{ExternalID: "L-1", Address: "100 Market St", Price: 500000, Bedrooms: 3, Bathrooms: 2, Area: 1200, ListedAt: deadline.Add(-48 * time.Hour), ZoneID: "94110"},
		{ExternalID: "L-2", Address: "102 Market St", Price: 650000, Bedrooms: 4, Bathrooms: 2.5, Area: 1600, ListedAt: deadline.Add(-24 * time.Hour), ZoneID: "94110"},
	}
}

func TestGatherZone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	g := &Gatherer{Store: store, Logger: zap.NewNop()}

	// One clean submission.
	putSubmission(t, store, manifestFor("miner-good"), sampleListings())

	// Late: manifest says it landed after the deadline.
	late := manifestFor("miner-late")
	late.SubmittedAt = deadline.Add(time.Minute)
	putSubmission(t, store, late, sampleListings())

	// Incomplete upload.
	partial := manifestFor("miner-partial")
	partial.UploadComplete = false
	putSubmission(t, store, partial, sampleListings())

	// Manifest claims completion but the payload never landed.
	putSubmission(t, store, manifestFor("miner-ghost"), nil)

	// Corrupt payload.
	corrupt := manifestFor("miner-corrupt")
	putSubmission(t, store, corrupt, nil)
	store.Put(Prefix(4211, "94110")+"miner-corrupt/listings.json", []byte("{not json"))

	// Different zone, must not bleed in.
	otherZone := manifestFor("miner-elsewhere")
	otherZone.ZoneID = "94121"
	putSubmission(t, store, otherZone, sampleListings())

	subs, err := g.GatherZone(ctx, 4211, "94110", deadline)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "miner-good", subs[0].MinerID)
	assert.Equal(t, 2, subs[0].ListingCount)
	assert.Len(t, subs[0].Listings, 2)
	assert.True(t, subs[0].UploadComplete)
}

func TestGatherZoneAtDeadlineIsOnTime(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	g := &Gatherer{Store: store, Logger: zap.NewNop()}

	m := manifestFor("miner-edge")
	m.SubmittedAt = deadline
	putSubmission(t, store, m, sampleListings())

	subs, err := g.GatherZone(ctx, 4211, "94110", deadline)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestGatherZoneEmptyPrefix(t *testing.T) {
	g := &Gatherer{Store: storage.NewMemory(), Logger: zap.NewNop()}
	subs, err := g.GatherZone(context.Background(), 4211, "94110", deadline)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestGatherZonePropagatesCancellation(t *testing.T) {
	store := storage.NewMemory()
	putSubmission(t, store, manifestFor("miner-good"), sampleListings())
	g := &Gatherer{Store: &cancellingStore{Memory: store}, Logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GatherZone(ctx, 4211, "94110", deadline)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingStore surfaces the context error on Get, the way a real backend
// would once the request context dies.
type cancellingStore struct {
	*storage.Memory
}

func (s *cancellingStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Memory.Get(ctx, path)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "epochs/4211/94110/", Prefix(4211, "94110"))
}

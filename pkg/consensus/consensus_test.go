package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submittedAt = time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)

func TestSpotCheckSeedDeterministic(t *testing.T) {
	nonce := []byte("epoch-nonce")

	seed := SpotCheckSeed(nonce, "miner-a", submittedAt, 230)
	assert.Equal(t, seed, SpotCheckSeed(nonce, "miner-a", submittedAt, 230))

	// Any input change moves the seed.
	assert.NotEqual(t, seed, SpotCheckSeed([]byte("other-nonce"), "miner-a", submittedAt, 230))
	assert.NotEqual(t, seed, SpotCheckSeed(nonce, "miner-b", submittedAt, 230))
	assert.NotEqual(t, seed, SpotCheckSeed(nonce, "miner-a", submittedAt.Add(time.Second), 230))
	assert.NotEqual(t, seed, SpotCheckSeed(nonce, "miner-a", submittedAt, 231))
}

func TestSpotCheckSeedTimezoneInsensitive(t *testing.T) {
	nonce := []byte("epoch-nonce")
	loc := time.FixedZone("PST", -8*3600)

	assert.Equal(t,
		SpotCheckSeed(nonce, "miner-a", submittedAt, 100),
		SpotCheckSeed(nonce, "miner-a", submittedAt.In(loc), 100))
}

func TestSampleIndices(t *testing.T) {
	t.Run("deterministic and sorted", func(t *testing.T) {
		a := SampleIndices(42, 230, 23)
		b := SampleIndices(42, 230, 23)
		require.Len(t, a, 23)
		assert.Equal(t, a, b)
		assert.IsIncreasing(t, a)
	})

	t.Run("distinct and in range", func(t *testing.T) {
		indices := SampleIndices(7, 100, 50)
		seen := make(map[int]bool)
		for _, idx := range indices {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 100)
			assert.False(t, seen[idx], "duplicate index %d", idx)
			seen[idx] = true
		}
	})

	t.Run("different seeds differ", func(t *testing.T) {
		assert.NotEqual(t, SampleIndices(1, 230, 23), SampleIndices(2, 230, 23))
	})

	t.Run("k above n returns everything", func(t *testing.T) {
		indices := SampleIndices(9, 3, 10)
		assert.Equal(t, []int{0, 1, 2}, indices)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Nil(t, SampleIndices(9, 0, 5))
		assert.Nil(t, SampleIndices(9, 5, 0))
	})
}

func TestComputeDigestOrderInsensitive(t *testing.T) {
	outcomes := []RankedOutcome{
		{MinerID: "miner-b", ZoneID: "94110", Rank: 2, Score: 0.82},
		{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 0.97},
		{MinerID: "miner-a", ZoneID: "94121", Rank: 1, Score: 0.91},
	}
	reversed := []RankedOutcome{outcomes[2], outcomes[0], outcomes[1]}

	assert.Equal(t, ComputeDigest(4211, outcomes), ComputeDigest(4211, reversed))
	assert.NotEqual(t, ComputeDigest(4211, outcomes), ComputeDigest(4212, outcomes))
}

func TestComputeDigestQuantization(t *testing.T) {
	base := []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 0.9182}}

	// Sub-quantum float drift between validators hashes identically.
	drifted := []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 0.91820000000004}}
	assert.Equal(t, ComputeDigest(4211, base), ComputeDigest(4211, drifted))

	// A real score difference does not.
	moved := []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 0.9183}}
	assert.NotEqual(t, ComputeDigest(4211, base), ComputeDigest(4211, moved))

	// A rank change with the same score does not.
	demoted := []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 2, Score: 0.9182}}
	assert.NotEqual(t, ComputeDigest(4211, base), ComputeDigest(4211, demoted))
}

func TestQuantizeScore(t *testing.T) {
	assert.Equal(t, uint32(0), QuantizeScore(-0.5))
	assert.Equal(t, uint32(0), QuantizeScore(0))
	assert.Equal(t, uint32(5000), QuantizeScore(0.5))
	assert.Equal(t, uint32(10000), QuantizeScore(1))
	assert.Equal(t, uint32(10000), QuantizeScore(1.7))
}

func TestParseDigestRoundTrip(t *testing.T) {
	d := ComputeDigest(4211, []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 1}})
	parsed, err := ParseDigest(d.Hex())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("not-hex")
	assert.Error(t, err)
	_, err = ParseDigest("abcd")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	local := ComputeDigest(4211, []RankedOutcome{{MinerID: "miner-a", ZoneID: "94110", Rank: 1, Score: 1}})
	other := ComputeDigest(4211, []RankedOutcome{{MinerID: "miner-b", ZoneID: "94110", Rank: 1, Score: 1}})

	tests := []struct {
		name     string
		peers    []Digest
		expected Agreement
	}{
		{name: "alone always agrees", peers: nil, expected: Agreed},
		{name: "single matching peer", peers: []Digest{local}, expected: Agreed},
		{name: "single disagreeing peer is a tie", peers: []Digest{other}, expected: Mismatch},
		{name: "majority of three", peers: []Digest{local, other}, expected: Agreed},
		{name: "minority of three", peers: []Digest{other, other}, expected: Mismatch},
		{name: "exact half is not majority", peers: []Digest{local, other, other}, expected: Mismatch},
		{name: "three of five", peers: []Digest{local, local, other, other}, expected: Agreed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(local, tt.peers))
		})
	}
}

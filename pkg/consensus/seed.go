// Package consensus holds everything that must be bit-identical across
// independent validators: the spot-check seed and sampler, the outcome
// digest, and the peer comparison that gates publication.
package consensus

import (
	"encoding/binary"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

// SpotCheckSeed derives the Tier-3 sampling seed from publicly observable
// submission metadata only: H(nonce || miner_id || submitted_at || count).
// Nothing validator-local (wall clock, process randomness) may enter here,
// otherwise peers sample different listings and digests diverge.
func SpotCheckSeed(nonce []byte, minerID string, submittedAt time.Time, listingCount int) int64 {
	h, _ := blake2b.New256(nil)
	h.Write(nonce)
	h.Write([]byte(minerID))

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(submittedAt.UTC().Unix()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(listingCount))
	h.Write(buf[:])

	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// SampleIndices picks k distinct indices in [0, n) from the seed, via a
// partial Fisher-Yates over a deterministic PRNG. Output is sorted so the
// sample order itself is canonical. k > n returns all indices.
func SampleIndices(seed int64, n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	r := rand.New(rand.NewSource(seed))
	for i := 0; i < k; i++ {
		j := i + r.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	out := idx[:k]
	sort.Ints(out)
	return out
}

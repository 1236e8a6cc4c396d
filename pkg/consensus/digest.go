package consensus

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

// Digest is the fixed-size hash over an epoch's ranked outcomes. It is only
// ever compared, never treated as authoritative state before agreement.
type Digest [sha256.Size]byte

func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

// ParseDigest decodes a hex digest as exchanged over the peer API.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parse digest: %w", err)
	}
	if len(raw) != sha256.Size {
		return d, fmt.Errorf("parse digest: want %d bytes, got %d", sha256.Size, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// RankedOutcome is one (miner, zone, rank, score) tuple entering the digest.
type RankedOutcome struct {
	MinerID string  `json:"miner_id"`
	ZoneID  string  `json:"zone_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

// scoreQuantum is the score resolution inside the digest. Scores are hashed
// at four decimal places: enough to distinguish real ranking differences,
// coarse enough that float arithmetic order cannot split validators.
const scoreQuantum = 10_000

// QuantizeScore maps a [0,1] score onto the digest's fixed grid.
func QuantizeScore(s float64) uint32 {
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return uint32(math.Round(s * scoreQuantum))
}

// ComputeDigest hashes the epoch ID and the sorted outcome tuples. Sorting
// is by (miner, zone) so input order never matters; two coordinators fed the
// same verdicts produce the same digest.
func ComputeDigest(epochID uint64, outcomes []RankedOutcome) Digest {
	sorted := make([]RankedOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MinerID != sorted[j].MinerID {
			return sorted[i].MinerID < sorted[j].MinerID
		}
		return sorted[i].ZoneID < sorted[j].ZoneID
	})

	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], epochID)
	h.Write(buf[:])
	for _, o := range sorted {
		fmt.Fprintf(h, "%s|%s|%d|%d\n", o.MinerID, o.ZoneID, o.Rank, QuantizeScore(o.Score))
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

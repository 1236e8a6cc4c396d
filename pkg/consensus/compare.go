package consensus

// Agreement is the outcome of comparing the local digest against peers.
type Agreement string

const (
	Agreed   Agreement = "AGREED"
	Mismatch Agreement = "MISMATCH"
)

// Compare checks the local digest against peer digests. Agreement requires
// the local digest to be held by a majority of currently-active validators
// (self plus every peer that answered). A lone validator always agrees with
// itself; peers that did not answer are not active and do not count against
// the quorum.
func Compare(local Digest, peers []Digest) Agreement {
	active := len(peers) + 1
	matching := 1 // self
	for _, p := range peers {
		if p == local {
			matching++
		}
	}
	if matching*2 > active {
		return Agreed
	}
	return Mismatch
}

// Package groundtruth is the Tier-3 verification source: an idempotent,
// side-effect-free lookup of a listing by external ID against the reference
// dataset the validator operator runs (MLS mirror, county records feed, …).
package groundtruth

import (
	"context"
	"errors"

	"github.com/domos-network/domosx/pkg/submission"
)

// ErrNotFound means the reference dataset has no record for the external ID
// (commonly a delisted property). Spot-check samples that hit this are
// excluded from the denominator, never counted as failed.
var ErrNotFound = errors.New("groundtruth: listing not found")

// ErrUnavailable means the lookup itself failed (timeout, breaker open,
// upstream error). Treated exactly like ErrNotFound by Tier 3: the sample is
// unresolvable and must not penalize the miner.
var ErrUnavailable = errors.New("groundtruth: lookup unavailable")

type Lookup interface {
	// Fetch returns the reference listing for the external ID.
	Fetch(ctx context.Context, externalID string) (*submission.Listing, error)
}

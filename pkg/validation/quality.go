package validation

import (
	"strings"

	"github.com/domos-network/domosx/pkg/submission"
)

// checksPerListing is how many Tier-2 checks each listing contributes:
// field presence, price, bedrooms, bathrooms, area.
const checksPerListing = 5

// tier2 computes the completeness score: the fraction of per-listing checks
// passed. A duplicate external_id anywhere in the submission zeroes the
// whole tier; duplication inside one payload is never an accident.
func (v *MultiTierValidator) tier2(sub *submission.Submission) float64 {
	if len(sub.Listings) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(sub.Listings))
	passed := 0
	for i := range sub.Listings {
		l := &sub.Listings[i]

		if _, dup := seen[l.ExternalID]; dup {
			return 0
		}
		seen[l.ExternalID] = struct{}{}

		if fieldsPresent(l) {
			passed++
		}
		if l.Price > 0 {
			passed++
		}
		if l.Bedrooms >= 0 && l.Bedrooms <= v.cfg.MaxBedrooms {
			passed++
		}
		if l.Bathrooms >= 0 && l.Bathrooms <= v.cfg.MaxBathrooms {
			passed++
		}
		if l.Area > 0 && l.Area <= v.cfg.MaxArea {
			passed++
		}
	}

	return float64(passed) / float64(len(sub.Listings)*checksPerListing)
}

// fieldsPresent checks the minimal required fields of a listing.
func fieldsPresent(l *submission.Listing) bool {
	return strings.TrimSpace(l.ExternalID) != "" &&
		strings.TrimSpace(l.Address) != "" &&
		strings.TrimSpace(l.ZoneID) != "" &&
		!l.ListedAt.IsZero()
}

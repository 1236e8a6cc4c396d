package validation

import (
	"sort"
	"strings"

	"github.com/domos-network/domosx/pkg/submission"
)

// FlagSynchronized flags verdicts whose submissions carry an identical
// external_id set to another miner's in the same zone. Two independent
// scrapers over the same inventory agree on most IDs, but an exact set match
// including order-insensitive duplicates means one payload was copied or
// both were generated from the same synthetic source. The flag is for audit;
// eligibility is untouched here.
func FlagSynchronized(subs []*submission.Submission, verdicts map[string]*Verdict) {
	fingerprints := make(map[string][]string) // fingerprint -> miner IDs
	for _, sub := range subs {
		if len(sub.Listings) == 0 {
			continue
		}
		fp := fingerprint(sub)
		fingerprints[fp] = append(fingerprints[fp], sub.MinerID)
	}

	for _, miners := range fingerprints {
		if len(miners) < 2 {
			continue
		}
		for _, minerID := range miners {
			if verdict, ok := verdicts[minerID]; ok && !verdict.Flagged(FlagSyntheticSuspected) {
				verdict.Flags = append(verdict.Flags, FlagSyntheticSuspected)
			}
		}
	}
}

func fingerprint(sub *submission.Submission) string {
	ids := make([]string, len(sub.Listings))
	for i := range sub.Listings {
		ids[i] = sub.Listings[i].ExternalID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/storage"
)

// json-iterator: payloads run to tens of thousands of listings per zone and
// dominate decode time during the gather phase.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	manifestObject = "manifest.json"
	payloadObject  = "listings.json"
)

// Prefix returns the storage prefix for one epoch/zone, e.g.
// "epochs/4211/94110/". Miner payloads live one level below:
// epochs/<epoch>/<zone>/<miner>/{manifest.json,listings.json}.
func Prefix(epochID uint64, zoneID string) string {
	return fmt.Sprintf("epochs/%d/%s/", epochID, zoneID)
}

// Gatherer materializes submissions from object storage.
type Gatherer struct {
	Store  storage.Client
	Logger *zap.Logger
}

// GatherZone lists the epoch/zone prefix and fetches every complete,
// on-time submission. Missing manifests, incomplete uploads and late
// submissions are non-participation, not errors: they are skipped with a
// debug log and never surface past this call.
func (g *Gatherer) GatherZone(ctx context.Context, epochID uint64, zoneID string, deadline time.Time) ([]*Submission, error) {
	prefix := Prefix(epochID, zoneID)
	paths, err := g.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	var out []*Submission
	for _, path := range paths {
		if !strings.HasSuffix(path, manifestObject) {
			continue
		}
		sub, err := g.fetchOne(ctx, path, deadline)
		if err != nil {
			// Storage unreachable is systemic and must propagate for retry;
			// anything else is a malformed or partial upload.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			g.Logger.Debug("Skipping submission",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		if sub != nil {
			out = append(out, sub)
		}
	}
	return out, nil
}

// fetchOne reads a manifest and, when it qualifies, the listing payload.
// Returns (nil, nil) for submissions excluded by the gathering rules.
func (g *Gatherer) fetchOne(ctx context.Context, manifestPath string, deadline time.Time) (*Submission, error) {
	raw, err := g.Store.Get(ctx, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if !m.UploadComplete {
		return nil, nil
	}
	if m.SubmittedAt.After(deadline) {
		return nil, nil
	}

	payloadPath := strings.TrimSuffix(manifestPath, manifestObject) + payloadObject
	body, err := g.Store.Get(ctx, payloadPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Manifest claims completion but the payload never landed.
			return nil, nil
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var listings []Listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return &Submission{
		MinerID:        m.MinerID,
		EpochID:        m.EpochID,
		ZoneID:         m.ZoneID,
		ListingCount:   m.ListingCount,
		Listings:       listings,
		SubmittedAt:    m.SubmittedAt,
		UploadComplete: true,
	}, nil
}

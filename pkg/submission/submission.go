// Package submission models a miner's claimed work product for one zone in
// one epoch, and materializes it from object storage.
package submission

import (
	"time"
)

// Listing is one scraped real-estate record. The engine treats it as opaque
// outside the specific fields the quality and spot-check tiers inspect.
type Listing struct {
	ExternalID string    `json:"external_id"`
	Address    string    `json:"address"`
	Price      float64   `json:"price"`
	Bedrooms   int       `json:"bedrooms"`
	Bathrooms  float64   `json:"bathrooms"`
	Area       float64   `json:"area"`
	ListedAt   time.Time `json:"listed_at"`
	ZoneID     string    `json:"zone_id"`
}

// Manifest is the small descriptor a miner uploads alongside its payload.
// It is the only part of a submission that is always fetched; the listing
// payload is materialized lazily when validation needs it.
type Manifest struct {
	MinerID        string    `json:"miner_id"`
	EpochID        uint64    `json:"epoch_id"`
	ZoneID         string    `json:"zone_id"`
	ListingCount   int       `json:"listing_count"`
	SubmittedAt    time.Time `json:"submitted_at"`
	UploadComplete bool      `json:"upload_complete"`
}

// Submission is immutable once fetched for validation. Re-submissions after
// the deadline are new objects in storage and are simply never gathered.
type Submission struct {
	MinerID        string    `json:"miner_id"`
	EpochID        uint64    `json:"epoch_id"`
	ZoneID         string    `json:"zone_id"`
	ListingCount   int       `json:"listing_count"`
	Listings       []Listing `json:"listings,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	UploadComplete bool      `json:"upload_complete"`
}

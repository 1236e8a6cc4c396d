// Package assignment fetches epoch descriptions (nonce, zones, deadline)
// from the network's assignment service.
package assignment

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/signer"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client interface {
	// CurrentEpoch returns the epoch description covering the given time.
	CurrentEpoch(ctx context.Context, at time.Time) (*epoch.Epoch, error)
}

// HTTP is the production client. Requests are authenticated with a signature
// over the request timestamp.
type HTTP struct {
	baseURL string
	signer  signer.Signer
	client  *http.Client
}

func NewHTTP(s signer.Signer) *HTTP {
	return &HTTP{
		baseURL: utils.Env("ASSIGNMENT_URL", "http://localhost:8092"),
		signer:  s,
		client:  &http.Client{Timeout: utils.EnvDuration("ASSIGNMENT_TIMEOUT", 15 * time.Second)},
	}
}

// wireEpoch is the assignment service's response shape; nonce travels hex
// encoded.
type wireEpoch struct {
	EpochID            uint64                 `json:"epoch_id"`
	Nonce              string                 `json:"nonce"`
	Zones              []epoch.ZoneAssignment `json:"zones"`
	StartsAt           time.Time              `json:"starts_at"`
	SubmissionDeadline time.Time              `json:"submission_deadline"`
}

func (c *HTTP) CurrentEpoch(ctx context.Context, at time.Time) (*epoch.Epoch, error) {
	u := fmt.Sprintf("%s/v1/epochs/current?at=%d", c.baseURL, at.UTC().Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	ts := fmt.Sprintf("%d", time.Now().UTC().Unix())
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Validator", hex.EncodeToString(c.signer.PublicKey()))
	req.Header.Set("X-Signature", hex.EncodeToString(c.signer.Sign([]byte(ts))))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assignment fetch: %w", err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assignment fetch: http %d", resp.StatusCode)
	}

	var w wireEpoch
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("assignment decode: %w", err)
	}
	nonce, err := hex.DecodeString(w.Nonce)
	if err != nil {
		return nil, fmt.Errorf("assignment nonce: %w", err)
	}
	if len(w.Zones) == 0 {
		return nil, fmt.Errorf("assignment for epoch %d has no zones", w.EpochID)
	}

	return &epoch.Epoch{
		ID:                 w.EpochID,
		Nonce:              nonce,
		Zones:              w.Zones,
		StartsAt:           w.StartsAt,
		SubmissionDeadline: w.SubmissionDeadline,
		State:              epoch.StatePending,
	}, nil
}

// Package chainclient is the narrow chain contract the publisher consumes:
// submit a weight vector, read the current block.
package chainclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/domos-network/domosx/pkg/signer"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client interface {
	SubmitWeights(ctx context.Context, weights map[string]float64) error
	CurrentBlock(ctx context.Context) (uint64, error)
}

// HTTP talks to the chain gateway. Requests carry an ed25519 signature over
// the body so the gateway can attribute the submission to this validator.
type HTTP struct {
	baseURL string
	signer  signer.Signer
	client  *http.Client
}

func NewHTTP(s signer.Signer) *HTTP {
	return &HTTP{
		baseURL: utils.Env("CHAIN_GATEWAY_URL", "http://localhost:8091"),
		signer:  s,
		client:  &http.Client{Timeout: utils.EnvDuration("CHAIN_TIMEOUT", 30 * time.Second)},
	}
}

type submitRequest struct {
	Validator string             `json:"validator"`
	Weights   map[string]float64 `json:"weights"`
}

func (c *HTTP) SubmitWeights(ctx context.Context, weights map[string]float64) error {
	body, err := json.Marshal(submitRequest{
		Validator: hex.EncodeToString(c.signer.PublicKey()),
		Weights:   weights,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/weights", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", hex.EncodeToString(c.signer.Sign(body)))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit weights: %w", err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("submit weights: http %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTP) CurrentBlock(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/block", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("current block: %w", err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("current block: http %d", resp.StatusCode)
	}
	var out struct {
		Height uint64 `json:"height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Height, nil
}

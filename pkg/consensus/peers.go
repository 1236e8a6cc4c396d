package consensus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DigestResponse is the wire shape of the peer digest endpoint.
type DigestResponse struct {
	EpochID uint64 `json:"epoch_id"`
	Digest  string `json:"digest"`
}

// PeerClient polls other validators' digest endpoints. Comparison is
// pull-based and read-only: there is no broadcast, no acknowledgement, no
// coordination state beyond this query.
type PeerClient struct {
	peers  []string
	token  string
	client *http.Client
	logger *zap.Logger
}

// NewPeerClient builds a client from VALIDATOR_PEERS (comma-separated base
// URLs) and VALIDATOR_PEER_TOKEN.
func NewPeerClient(logger *zap.Logger) *PeerClient {
	return &PeerClient{
		peers:  utils.EnvList("VALIDATOR_PEERS"),
		token:  utils.Env("VALIDATOR_PEER_TOKEN", ""),
		client: &http.Client{Timeout: utils.EnvDuration("VALIDATOR_PEER_TIMEOUT", 10 * time.Second)},
		logger: logger,
	}
}

// PeerCount returns the number of configured peers.
func (c *PeerClient) PeerCount() int { return len(c.peers) }

// FetchDigests polls every configured peer for its digest of the given
// epoch. Unreachable peers are skipped: a validator that cannot answer is
// not currently active and has no vote.
func (c *PeerClient) FetchDigests(ctx context.Context, epochID uint64) []Digest {
	out := make([]Digest, 0, len(c.peers))
	for _, peer := range c.peers {
		d, err := c.fetchOne(ctx, peer, epochID)
		if err != nil {
			c.logger.Warn("Peer digest unavailable",
				zap.String("peer", peer),
				zap.Uint64("epoch", epochID),
				zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *PeerClient) fetchOne(ctx context.Context, peer string, epochID uint64) (Digest, error) {
	var zero Digest
	u := fmt.Sprintf("%s/v1/consensus/digest/%d", peer, epochID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("http %d", resp.StatusCode)
	}
	var body DigestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return zero, err
	}
	return ParseDigest(body.Digest)
}

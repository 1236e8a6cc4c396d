package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Gateway talks to the blob gateway fronting the network's object store.
// The gateway exposes two routes: GET /v1/list?prefix=… (JSON array of
// paths) and GET /v1/object/<path> (raw bytes).
type Gateway struct {
	baseURL string
	client  *http.Client
}

// NewGateway builds a Gateway from STORAGE_GATEWAY_URL. The timeout bounds a
// single object fetch; large payloads are expected, so it is generous.
func NewGateway() *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(utils.Env("STORAGE_GATEWAY_URL", "http://localhost:8090"), "/"),
		client:  &http.Client{Timeout: utils.EnvDuration("STORAGE_TIMEOUT", 60*time.Second)},
	}
}

func (g *Gateway) List(ctx context.Context, prefix string) ([]string, error) {
	u := fmt.Sprintf("%s/v1/list?prefix=%s", g.baseURL, url.QueryEscape(prefix))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage list %q: %w", prefix, err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage list %q: unexpected status %d", prefix, resp.StatusCode)
	}
	var paths []string
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		return nil, fmt.Errorf("storage list %q: decode: %w", prefix, err)
	}
	return paths, nil
}

func (g *Gateway) Get(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/v1/object/%s", g.baseURL, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage get %q: %w", path, err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("storage get %q: unexpected status %d", path, resp.StatusCode)
	}
}

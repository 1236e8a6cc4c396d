// Package controller is the validator's HTTP surface: the peer digest
// endpoint other validators poll, and the read-only operator API.
package controller

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/mux"

	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Controller struct {
	App *types.App

	// PeerToken authenticates validator-to-validator digest polls.
	PeerToken string
	// OperatorToken authenticates the operator API.
	OperatorToken string
	// JWTSecret verifies operator session tokens as an alternative to the
	// static token.
	JWTSecret []byte
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App:           app,
		PeerToken:     utils.Env("VALIDATOR_PEER_TOKEN", ""),
		OperatorToken: utils.Env("OPERATOR_TOKEN", "devtoken"),
		JWTSecret:     []byte(utils.Env("SESSION_SECRET", "change-me-please")),
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods(http.MethodGet)
	r.Handle("/readyz", http.HandlerFunc(c.HandleReady)).Methods(http.MethodGet)

	// Validator-to-validator
	r.Handle("/v1/consensus/digest/{epochID}", c.RequirePeer(http.HandlerFunc(c.HandleDigest))).Methods(http.MethodGet)

	// Operator API
	r.Handle("/v1/status", c.RequireOperator(http.HandlerFunc(c.HandleStatus))).Methods(http.MethodGet)
	r.Handle("/v1/credibility", c.RequireOperator(http.HandlerFunc(c.HandleCredibilityList))).Methods(http.MethodGet)
	r.Handle("/v1/credibility/{minerID}", c.RequireOperator(http.HandlerFunc(c.HandleCredibilityGet))).Methods(http.MethodGet)
	r.Handle("/v1/epochs/{epochID}", c.RequireOperator(http.HandlerFunc(c.HandleEpoch))).Methods(http.MethodGet)
	r.Handle("/v1/epochs/{epochID}/rewards", c.RequireOperator(http.HandlerFunc(c.HandleEpochRewards))).Methods(http.MethodGet)
	r.Handle("/v1/weights/last", c.RequireOperator(http.HandlerFunc(c.HandleLastWeights))).Methods(http.MethodGet)

	return r
}

// HandleReady reports readiness against the backing stores.
func (c *Controller) HandleReady(w http.ResponseWriter, r *http.Request) {
	if c.App.Ready(r.Context()) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

// writeJSON writes a JSON response.
func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, map[string]string{"error": message})
}

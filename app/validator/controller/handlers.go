package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/domos-network/domosx/app/validator/activity"
	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/kv"
)

func epochIDVar(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["epochID"], 10, 64)
}

// HandleDigest serves the local outcome digest for an epoch. Peers poll this
// after their own evaluation; 404 means we have not evaluated that epoch yet.
func (c *Controller) HandleDigest(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDVar(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid epoch id")
		return
	}

	hex, err := c.App.Store.Get(r.Context(), activity.DigestKey(epochID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			c.writeError(w, http.StatusNotFound, "digest not available")
			return
		}
		c.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.writeJSON(w, http.StatusOK, consensus.DigestResponse{EpochID: epochID, Digest: hex})
}

// HandleStatus reports the publisher state and the current window.
func (c *Controller) HandleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	status := map[string]any{
		"publisher_state": c.App.Publisher.State(),
		"current_window":  epoch.WindowID(now),
		"window_start":    epoch.WindowStart(epoch.WindowID(now)),
	}
	if epochID, vector, ok := c.App.Publisher.LastPublished(); ok {
		status["last_published_epoch"] = epochID
		status["last_published_miners"] = len(vector)
	}
	if cur, err := c.App.Coordinator.Get(r.Context(), epoch.WindowID(now)); err == nil {
		status["current_epoch_state"] = cur.State
	}
	c.writeJSON(w, http.StatusOK, status)
}

// HandleCredibilityList returns every credibility record in memory.
func (c *Controller) HandleCredibilityList(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, c.App.Ledger.All())
}

// HandleCredibilityGet returns one miner's credibility record.
func (c *Controller) HandleCredibilityGet(w http.ResponseWriter, r *http.Request) {
	minerID := mux.Vars(r)["minerID"]
	if minerID == "" {
		c.writeError(w, http.StatusBadRequest, "missing miner id")
		return
	}
	c.writeJSON(w, http.StatusOK, c.App.Ledger.Get(r.Context(), minerID))
}

// HandleEpoch returns the persisted lifecycle state of one epoch.
func (c *Controller) HandleEpoch(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDVar(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid epoch id")
		return
	}
	ep, err := c.App.Coordinator.Get(r.Context(), epochID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			c.writeError(w, http.StatusNotFound, "epoch unknown")
			return
		}
		c.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.writeJSON(w, http.StatusOK, ep)
}

// HandleEpochRewards returns an archived epoch's reward vector.
func (c *Controller) HandleEpochRewards(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDVar(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid epoch id")
		return
	}
	vector, err := c.App.Archive.GetRewardVector(r.Context(), epochID)
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(vector) == 0 {
		c.writeError(w, http.StatusNotFound, "no reward vector archived")
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"epoch_id": epochID, "vector": vector})
}

// HandleLastWeights returns the vector currently in effect on-chain.
func (c *Controller) HandleLastWeights(w http.ResponseWriter, r *http.Request) {
	epochID, vector, ok := c.App.Publisher.LastPublished()
	if !ok {
		c.writeError(w, http.StatusNotFound, "nothing published yet")
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"epoch_id": epochID, "vector": vector})
}

// Package signer authenticates outbound calls to the assignment service and
// the chain gateway. It is never consulted inside scoring logic.
package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
)

type Signer interface {
	Sign(payload []byte) []byte
	PublicKey() []byte
}

// Ed25519 signs with a static key loaded from the environment.
type Ed25519 struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewFromEnv reads VALIDATOR_KEY_SEED (hex, 32 bytes).
func NewFromEnv() (*Ed25519, error) {
	seedHex := os.Getenv("VALIDATOR_KEY_SEED")
	if seedHex == "" {
		return nil, fmt.Errorf("VALIDATOR_KEY_SEED is required")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode VALIDATOR_KEY_SEED: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("VALIDATOR_KEY_SEED must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

func (s *Ed25519) Sign(payload []byte) []byte {
	return ed25519.Sign(s.priv, payload)
}

func (s *Ed25519) PublicKey() []byte {
	return s.pub
}

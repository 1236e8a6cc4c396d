package activity

import (
	"context"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/credibility"
	dbvalidator "github.com/domos-network/domosx/pkg/db/validator"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/publisher"
	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/submission"
	"github.com/domos-network/domosx/pkg/validation"
)

// Context carries every dependency the evaluation activities touch. One
// instance is shared by the whole worker; everything in it is safe for
// concurrent use.
type Context struct {
	Logger *zap.Logger

	Coordinator *epoch.Coordinator
	Gatherer    *submission.Gatherer
	Validator   *validation.MultiTierValidator
	Scorer      *scoring.Scorer
	Ledger      *credibility.Ledger
	Peers       *consensus.PeerClient
	Publisher   *publisher.Publisher
	Archive     dbvalidator.Store

	Events EventPublisher
	Store  kv.Store
}

// EventPublisher is the slice of the Redis client the activities use to emit
// operator events. Best-effort by contract.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{})
}

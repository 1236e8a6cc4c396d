package types

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/credibility"
	dbvalidator "github.com/domos-network/domosx/pkg/db/validator"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/kv"
	"github.com/domos-network/domosx/pkg/publisher"
	"github.com/domos-network/domosx/pkg/redis"
	"github.com/domos-network/domosx/pkg/temporal"
	"github.com/domos-network/domosx/pkg/validation"
)

// App wires the validator's long-lived components: the Temporal worker that
// runs epoch evaluation, the cron that drives the epoch lifecycle and weight
// publication, and the HTTP surface peers and operators talk to.
type App struct {
	TemporalClient *temporal.Client
	Worker         worker.Worker

	// Cron drives the epoch tick and the publication tick.
	Cron *cron.Cron
	// EpochSpec is the cron spec for the epoch lifecycle tick.
	EpochSpec string
	// PublishSpec is the cron spec for the weight publication tick, aligned
	// to the chain cadence rather than the epoch cadence.
	PublishSpec string

	Coordinator *epoch.Coordinator
	Validator   *validation.MultiTierValidator
	Ledger      *credibility.Ledger
	Publisher   *publisher.Publisher
	Archive     dbvalidator.Store

	Redis *redis.Client
	Store kv.Store

	Logger *zap.Logger
	Server *http.Server
}

// Ready reports whether the app can serve traffic.
func (a *App) Ready(ctx context.Context) bool {
	if err := a.Redis.Health(ctx); err != nil {
		return false
	}
	if err := a.Archive.Health(ctx); err != nil {
		return false
	}
	return true
}

// Start runs the worker, cron and HTTP server, then blocks until the context
// is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	a.Cron.Start()
	a.Logger.Info("Cron started",
		zap.String("epochSpec", a.EpochSpec),
		zap.String("publishSpec", a.PublishSpec))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Stop()
}

// Stop shuts everything down in dependency order.
func (a *App) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	<-a.Cron.Stop().Done()
	a.Worker.Stop()
	a.Validator.Stop()
	a.TemporalClient.Close()

	if err := a.Archive.Close(); err != nil {
		a.Logger.Error("Failed to close archive connection", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("Failed to close Redis connection", zap.Error(err))
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

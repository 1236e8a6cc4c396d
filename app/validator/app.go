// Package validator assembles the decision engine: epoch lifecycle cron,
// Temporal evaluation worker, weight publisher and HTTP surface.
package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/app/validator/activity"
	"github.com/domos-network/domosx/app/validator/types"
	"github.com/domos-network/domosx/app/validator/workflow"
	"github.com/domos-network/domosx/pkg/assignment"
	"github.com/domos-network/domosx/pkg/chainclient"
	"github.com/domos-network/domosx/pkg/consensus"
	"github.com/domos-network/domosx/pkg/credibility"
	dbvalidator "github.com/domos-network/domosx/pkg/db/validator"
	"github.com/domos-network/domosx/pkg/epoch"
	"github.com/domos-network/domosx/pkg/groundtruth"
	"github.com/domos-network/domosx/pkg/logging"
	"github.com/domos-network/domosx/pkg/publisher"
	"github.com/domos-network/domosx/pkg/redis"
	"github.com/domos-network/domosx/pkg/scoring"
	"github.com/domos-network/domosx/pkg/signer"
	"github.com/domos-network/domosx/pkg/storage"
	"github.com/domos-network/domosx/pkg/submission"
	"github.com/domos-network/domosx/pkg/temporal"
	"github.com/domos-network/domosx/pkg/utils"
	"github.com/domos-network/domosx/pkg/validation"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(err))
	}

	archive, err := dbvalidator.New(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize archive database", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	keys, err := signer.NewFromEnv()
	if err != nil {
		logger.Fatal("Unable to load validator key", zap.Error(err))
	}

	coordinator := epoch.NewCoordinator(assignment.NewHTTP(keys), redisClient, logger)
	ledger := credibility.NewLedger(credibility.ConfigFromEnv(), redisClient, logger)
	scorer := scoring.New(scoring.ConfigFromEnv(), logger)
	lookup := groundtruth.NewHTTPClient(groundtruth.OptsFromEnv())
	tierValidator := validation.New(validation.ConfigFromEnv(), lookup, logger)
	pub := publisher.New(publisher.ConfigFromEnv(), chainclient.NewHTTP(keys), redisClient, logger)
	if err := pub.Restore(ctx); err != nil {
		logger.Warn("Unable to restore last published vector", zap.Error(err))
	}

	activityContext := &activity.Context{
		Logger:      logger,
		Coordinator: coordinator,
		Gatherer:    &submission.Gatherer{Store: storage.NewGateway(), Logger: logger},
		Validator:   tierValidator,
		Scorer:      scorer,
		Ledger:      ledger,
		Peers:       consensus.NewPeerClient(logger),
		Publisher:   pub,
		Archive:     archive,
		Events:      redisClient,
		Store:       redisClient,
	}
	workflowContext := &workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.EvaluateQueue,
		worker.Options{
			MaxConcurrentWorkflowTaskPollers: 5,
			MaxConcurrentActivityTaskPollers: 10,
			// Zones fan out inside one epoch workflow; one epoch closes
			// every four hours, so modest limits are plenty.
			MaxConcurrentActivityExecutionSize: 64,
			WorkerStopTimeout:                  1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.EvaluateEpochWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.EvaluateEpochWorkflowName},
	)
	wkr.RegisterActivity(activityContext.BeginEvaluation)
	wkr.RegisterActivity(activityContext.EvaluateZone)
	wkr.RegisterActivity(activityContext.RankZones)
	wkr.RegisterActivity(activityContext.ComputeDigest)
	wkr.RegisterActivity(activityContext.CompareDigests)
	wkr.RegisterActivity(activityContext.UpdateCredibility)
	wkr.RegisterActivity(activityContext.AggregateRewards)
	wkr.RegisterActivity(activityContext.ArchiveEpoch)
	wkr.RegisterActivity(activityContext.FinalizeEpoch)

	app := &types.App{
		TemporalClient: temporalClient,
		Worker:         wkr,
		EpochSpec:      utils.Env("EPOCH_CRON", "0 * * * * *"),
		PublishSpec:    utils.Env("PUBLISH_CRON", "30 */5 * * * *"),
		Coordinator:    coordinator,
		Validator:      tierValidator,
		Ledger:         ledger,
		Publisher:      pub,
		Archive:        archive,
		Redis:          redisClient,
		Store:          redisClient,
		Logger:         logger,
	}

	if err := setupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}

	NewServer(app)

	return app
}

// setupScheduler wires the two recurring ticks: the epoch lifecycle tick and
// the weight publication tick.
func setupScheduler(ctx context.Context, app *types.App) error {
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := app.Cron.AddFunc(app.EpochSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 50*time.Second)
		defer cancel()
		epochTick(rctx, app)
	}); err != nil {
		return err
	}

	if _, err := app.Cron.AddFunc(app.PublishSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		publishTick(rctx, app)
	}); err != nil {
		return err
	}

	return nil
}

// publishTick runs the publisher and announces a fresh on-chain vector when
// one actually went out.
func publishTick(ctx context.Context, app *types.App) {
	before, _, _ := app.Publisher.LastPublished()

	if err := app.Publisher.Tick(ctx); err != nil {
		app.Logger.Error("Publication tick failed", zap.Error(err))
		return
	}

	after, _, ok := app.Publisher.LastPublished()
	if ok && after != before {
		app.Redis.Publish(ctx, redis.ChannelWeightsPublished,
			fmt.Sprintf(`{"epoch_id":%d}`, after))
	}
}

// epochTick keeps the current window materialized and kicks off evaluation
// of the previous window once it closes. Most ticks do nothing.
func epochTick(ctx context.Context, app *types.App) {
	now := time.Now().UTC()

	if _, err := app.Coordinator.EnsureCurrent(ctx, now); err != nil {
		app.Logger.Warn("Current epoch not materialized", zap.Error(err))
	}

	due, err := app.Coordinator.DueForEvaluation(ctx, now)
	if err != nil {
		app.Logger.Error("Epoch due check failed", zap.Error(err))
		return
	}
	if due == nil {
		return
	}

	in := types.EvaluateEpochInput{EpochID: due.ID}
	_, err = app.TemporalClient.TClient.ExecuteWorkflow(
		ctx,
		app.TemporalClient.EvaluateStartOptions(due.ID),
		workflow.EvaluateEpochWorkflowName,
		in,
	)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return
		}
		app.Logger.Error("Unable to start epoch evaluation",
			zap.Uint64("epoch", due.ID),
			zap.Error(err))
		return
	}

	app.Logger.Info("Epoch evaluation scheduled", zap.Uint64("epoch", due.ID))
}

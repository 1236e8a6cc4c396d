package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/utils"
)

// Client wraps the Temporal connection plus the queue and ID naming scheme.
type Client struct {
	TClient   client.Client
	Namespace string

	// Task queues
	EvaluateQueue string // epoch evaluation workflow + activities

	// Workflow IDs
	evaluateEpochWorkflowID string
}

// NewClient connects to Temporal using TEMPORAL_HOSTPORT and
// TEMPORAL_NAMESPACE.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "domosx")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:                 tClient,
		Namespace:               ns,
		EvaluateQueue:           "evaluate",
		evaluateEpochWorkflowID: "evaluate:%d",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetEvaluateEpochWorkflowID returns the workflow ID for evaluating the
// given epoch. One ID per epoch: a duplicate trigger joins the running
// workflow instead of starting a second evaluation.
func (c *Client) GetEvaluateEpochWorkflowID(epochID uint64) string {
	return fmt.Sprintf(c.evaluateEpochWorkflowID, epochID)
}

// EvaluateStartOptions returns the start options for an epoch evaluation.
// The execution timeout keeps a stuck evaluation from outliving its window:
// whatever has not finished when the next epoch is due gets cancelled and
// the idempotency guard discards its writes.
func (c *Client) EvaluateStartOptions(epochID uint64) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                       c.GetEvaluateEpochWorkflowID(epochID),
		TaskQueue:                c.EvaluateQueue,
		WorkflowExecutionTimeout: 4 * time.Hour,
	}
}

// Close closes the Temporal connection.
func (c *Client) Close() {
	c.TClient.Close()
}

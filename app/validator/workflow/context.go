// Package workflow orchestrates one epoch's evaluation as a Temporal
// workflow: gather, validate, rank, compare, fold into credibility, archive,
// finalize.
package workflow

import (
	"github.com/domos-network/domosx/app/validator/activity"
	"github.com/domos-network/domosx/pkg/temporal"
)

// EvaluateEpochWorkflowName registers the epoch evaluation workflow.
const EvaluateEpochWorkflowName = "evaluate-epoch"

type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
}

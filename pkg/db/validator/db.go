// Package validator is the ClickHouse archive store: epochs, verdicts,
// rankings, reward vectors, consensus audit and credibility history. Nothing
// in here is authoritative for scoring; the archive exists for operators and
// audits.
package validator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/db/clickhouse"
	models "github.com/domos-network/domosx/pkg/db/models/validator"
	"github.com/domos-network/domosx/pkg/utils"
)

// Store is the archive interface the activities depend on.
type Store interface {
	InsertEpoch(ctx context.Context, row *models.Epoch) error
	InsertVerdicts(ctx context.Context, rows []*models.Verdict) error
	InsertZoneRankings(ctx context.Context, rows []*models.ZoneRanking) error
	InsertRewardVector(ctx context.Context, rows []*models.RewardWeight) error
	InsertConsensusAudit(ctx context.Context, row *models.ConsensusAudit) error
	InsertCredibilityDeltas(ctx context.Context, rows []*models.CredibilityDelta) error
	GetRewardVector(ctx context.Context, epochID uint64) (map[string]float64, error)
	Health(ctx context.Context) error
	Close() error
}

// DB implements Store on ClickHouse.
type DB struct {
	*clickhouse.Client
}

// New connects and ensures every archive table exists.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	client, err := clickhouse.New(ctx, logger, utils.Env("CLICKHOUSE_DATABASE", "domosx"))
	if err != nil {
		return nil, err
	}
	db := &DB{Client: client}
	if err := db.init(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// tableSpec pairs a table name with its schema and sort key.
type tableSpec struct {
	name    string
	columns []models.ColumnDef
	orderBy string
}

func (db *DB) init(ctx context.Context) error {
	specs := []tableSpec{
		{models.EpochsTableName, models.EpochColumns, "(epoch_id)"},
		{models.VerdictsTableName, models.VerdictColumns, "(epoch_id, zone_id, miner_id)"},
		{models.ZoneRankingsTableName, models.ZoneRankingColumns, "(epoch_id, zone_id, rank)"},
		{models.RewardVectorsTableName, models.RewardVectorColumns, "(epoch_id, miner_id)"},
		{models.ConsensusAuditTableName, models.ConsensusAuditColumns, "(epoch_id, recorded_at)"},
		{models.CredibilityHistoryTableName, models.CredibilityHistoryColumns, "(miner_id, epoch_id)"},
	}
	for _, spec := range specs {
		query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY %s
	`, db.Name, spec.name, models.ColumnsToSchemaSQL(spec.columns), clickhouse.MergeTree, spec.orderBy)
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", spec.name, err)
		}
	}
	return nil
}

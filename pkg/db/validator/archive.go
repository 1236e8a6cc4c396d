package validator

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	models "github.com/domos-network/domosx/pkg/db/models/validator"
)

func (db *DB) insertQuery(table string, cols []models.ColumnDef) string {
	return fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES`, db.Name, table, models.Names(cols))
}

// InsertEpoch archives one epoch summary row.
func (db *DB) InsertEpoch(ctx context.Context, row *models.Epoch) error {
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.EpochsTableName, models.EpochColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	if err := batch.Append(
		row.EpochID,
		row.StartsAt,
		row.SubmissionDeadline,
		row.State,
		row.Zones,
		row.HoneypotZones,
		row.Submissions,
		row.Miners,
		row.Agreement,
		row.Digest,
		row.ArchivedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

// InsertVerdicts archives the epoch's verdicts in one batch.
func (db *DB) InsertVerdicts(ctx context.Context, rows []*models.Verdict) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.VerdictsTableName, models.VerdictColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	for _, r := range rows {
		if err := batch.Append(
			r.EpochID,
			r.ZoneID,
			r.MinerID,
			r.Tier1Pass,
			r.Tier2Score,
			r.Tier3PassRate,
			r.Tier3Indeterminate,
			r.Eligible,
			r.Flags,
			r.SubmittedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// InsertZoneRankings archives per-zone rankings in one batch.
func (db *DB) InsertZoneRankings(ctx context.Context, rows []*models.ZoneRanking) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.ZoneRankingsTableName, models.ZoneRankingColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	for _, r := range rows {
		if err := batch.Append(r.EpochID, r.ZoneID, r.MinerID, r.Rank, r.Composite, r.Share); err != nil {
			return err
		}
	}
	return batch.Send()
}

// InsertRewardVector archives the epoch reward vector in one batch.
func (db *DB) InsertRewardVector(ctx context.Context, rows []*models.RewardWeight) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.RewardVectorsTableName, models.RewardVectorColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	for _, r := range rows {
		if err := batch.Append(r.EpochID, r.MinerID, r.Weight, r.Published, r.CreatedAt); err != nil {
			return err
		}
	}
	return batch.Send()
}

// InsertConsensusAudit archives one consensus comparison row.
func (db *DB) InsertConsensusAudit(ctx context.Context, row *models.ConsensusAudit) error {
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.ConsensusAuditTableName, models.ConsensusAuditColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	if err := batch.Append(
		row.EpochID,
		row.Agreement,
		row.LocalDigest,
		row.PeerDigests,
		row.Outcomes,
		row.RecordedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

// InsertCredibilityDeltas archives per-miner credibility movements.
func (db *DB) InsertCredibilityDeltas(ctx context.Context, rows []*models.CredibilityDelta) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := db.PrepareBatch(ctx, db.insertQuery(models.CredibilityHistoryTableName, models.CredibilityHistoryColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) { _ = batch.Abort() }(batch)

	for _, r := range rows {
		if err := batch.Append(
			r.EpochID,
			r.MinerID,
			r.Outcome,
			r.Score,
			r.EpochsObserved,
			r.Flagged,
			r.Indeterminate,
			r.RecordedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// GetRewardVector reads an archived epoch's reward vector.
func (db *DB) GetRewardVector(ctx context.Context, epochID uint64) (map[string]float64, error) {
	query := fmt.Sprintf(`
		SELECT miner_id, weight
		FROM "%s"."%s"
		WHERE epoch_id = ?
	`, db.Name, models.RewardVectorsTableName)
	rows, err := db.Db.Query(ctx, query, epochID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]float64)
	for rows.Next() {
		var minerID string
		var weight float64
		if err := rows.Scan(&minerID, &weight); err != nil {
			return nil, err
		}
		out[minerID] = weight
	}
	return out, rows.Err()
}

package validator

import "time"

const CredibilityHistoryTableName = "credibility_history"

// CredibilityHistoryColumns defines the schema for the credibility delta
// archive: one row per miner per evaluated epoch.
var CredibilityHistoryColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "miner_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "outcome", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "score", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "epochs_observed", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "flagged", Type: "UInt8"},
	{Name: "indeterminate", Type: "UInt8"},
	{Name: "recorded_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
}

type CredibilityDelta struct {
	EpochID        uint64    `ch:"epoch_id" json:"epoch_id"`
	MinerID        string    `ch:"miner_id" json:"miner_id"`
	Outcome        float64   `ch:"outcome" json:"outcome"`
	Score          float64   `ch:"score" json:"score"`
	EpochsObserved uint32    `ch:"epochs_observed" json:"epochs_observed"`
	Flagged        uint8     `ch:"flagged" json:"flagged"`
	Indeterminate  uint8     `ch:"indeterminate" json:"indeterminate"`
	RecordedAt     time.Time `ch:"recorded_at" json:"recorded_at"`
}

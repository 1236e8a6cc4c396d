package validator

import "time"

const ZoneRankingsTableName = "zone_rankings"
const RewardVectorsTableName = "reward_vectors"

// ZoneRankingColumns defines the schema for the per-zone ranking archive.
var ZoneRankingColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "zone_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "miner_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "rank", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "composite", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "share", Type: "Float64", Codec: "Delta, ZSTD(3)"},
}

type ZoneRanking struct {
	EpochID   uint64  `ch:"epoch_id" json:"epoch_id"`
	ZoneID    string  `ch:"zone_id" json:"zone_id"`
	MinerID   string  `ch:"miner_id" json:"miner_id"`
	Rank      uint32  `ch:"rank" json:"rank"`
	Composite float64 `ch:"composite" json:"composite"`
	Share     float64 `ch:"share" json:"share"`
}

// RewardVectorColumns defines the schema for the epoch reward vector archive.
var RewardVectorColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "miner_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "weight", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "published", Type: "UInt8"},
	{Name: "created_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
}

type RewardWeight struct {
	EpochID   uint64    `ch:"epoch_id" json:"epoch_id"`
	MinerID   string    `ch:"miner_id" json:"miner_id"`
	Weight    float64   `ch:"weight" json:"weight"`
	Published uint8     `ch:"published" json:"published"`
	CreatedAt time.Time `ch:"created_at" json:"created_at"`
}

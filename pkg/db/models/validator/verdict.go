package validator

import "time"

const VerdictsTableName = "verdicts"

// VerdictColumns defines the schema for the archived verdicts table.
var VerdictColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "zone_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "miner_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "tier1_pass", Type: "UInt8"},
	{Name: "tier2_score", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "tier3_pass_rate", Type: "Float64", Codec: "Delta, ZSTD(3)"},
	{Name: "tier3_indeterminate", Type: "UInt8"},
	{Name: "eligible", Type: "UInt8"},
	{Name: "flags", Type: "Array(String)", Codec: "ZSTD(1)"},
	{Name: "submitted_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
}

type Verdict struct {
	EpochID            uint64    `ch:"epoch_id" json:"epoch_id"`
	ZoneID             string    `ch:"zone_id" json:"zone_id"`
	MinerID            string    `ch:"miner_id" json:"miner_id"`
	Tier1Pass          uint8     `ch:"tier1_pass" json:"tier1_pass"`
	Tier2Score         float64   `ch:"tier2_score" json:"tier2_score"`
	Tier3PassRate      float64   `ch:"tier3_pass_rate" json:"tier3_pass_rate"`
	Tier3Indeterminate uint8     `ch:"tier3_indeterminate" json:"tier3_indeterminate"`
	Eligible           uint8     `ch:"eligible" json:"eligible"`
	Flags              []string  `ch:"flags" json:"flags"`
	SubmittedAt        time.Time `ch:"submitted_at" json:"submitted_at"`
}

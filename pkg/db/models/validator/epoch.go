package validator

import "time"

const EpochsTableName = "epochs"

// EpochColumns defines the schema for the archived epochs table.
var EpochColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "starts_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
	{Name: "submission_deadline", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
	{Name: "state", Type: "String", Codec: "ZSTD(1)"},
	{Name: "zones", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "honeypot_zones", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "submissions", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "miners", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "agreement", Type: "String", Codec: "ZSTD(1)"},
	{Name: "digest", Type: "String", Codec: "ZSTD(1)"},
	{Name: "archived_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
}

type Epoch struct {
	EpochID            uint64    `ch:"epoch_id" json:"epoch_id"`
	StartsAt           time.Time `ch:"starts_at" json:"starts_at"`
	SubmissionDeadline time.Time `ch:"submission_deadline" json:"submission_deadline"`
	State              string    `ch:"state" json:"state"`
	Zones              uint32    `ch:"zones" json:"zones"`
	HoneypotZones      uint32    `ch:"honeypot_zones" json:"honeypot_zones"`
	Submissions        uint32    `ch:"submissions" json:"submissions"`
	Miners             uint32    `ch:"miners" json:"miners"`
	Agreement          string    `ch:"agreement" json:"agreement"`
	Digest             string    `ch:"digest" json:"digest"`
	ArchivedAt         time.Time `ch:"archived_at" json:"archived_at"`
}

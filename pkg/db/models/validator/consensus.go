package validator

import "time"

const ConsensusAuditTableName = "consensus_audit"

// ConsensusAuditColumns defines the schema for the consensus audit trail.
// On a mismatch the full local tuple set is archived so operators can diff
// against a peer's without replaying the epoch.
var ConsensusAuditColumns = []ColumnDef{
	{Name: "epoch_id", Type: "UInt64", Codec: "DoubleDelta, LZ4"},
	{Name: "agreement", Type: "String", Codec: "ZSTD(1)"},
	{Name: "local_digest", Type: "String", Codec: "ZSTD(1)"},
	{Name: "peer_digests", Type: "Array(String)", Codec: "ZSTD(1)"},
	{Name: "outcomes", Type: "String", Codec: "ZSTD(1)"}, // JSON tuple dump
	{Name: "recorded_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4"},
}

type ConsensusAudit struct {
	EpochID     uint64    `ch:"epoch_id" json:"epoch_id"`
	Agreement   string    `ch:"agreement" json:"agreement"`
	LocalDigest string    `ch:"local_digest" json:"local_digest"`
	PeerDigests []string  `ch:"peer_digests" json:"peer_digests"`
	Outcomes    string    `ch:"outcomes" json:"outcomes"`
	RecordedAt  time.Time `ch:"recorded_at" json:"recorded_at"`
}

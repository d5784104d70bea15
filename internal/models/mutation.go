package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of a queued mutation.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// PendingMutation is a durable queue entry awaiting application against the
// remote store. At most one mutation exists per (Table, RecordID); a later
// mutation replaces an earlier unsynced one. Seq is a monotonically
// increasing local sequence used both for FIFO drain order and for
// acknowledgement: acknowledging a Seq that has since been superseded is a
// no-op.
type PendingMutation struct {
	Seq        int64           `json:"seq"`
	Table      string          `json:"table"`
	Op         Operation       `json:"op"`
	RecordID   string          `json:"record_id"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

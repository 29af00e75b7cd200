package models

import "time"

// Event is one audited mutation of the ledger.
type Event struct {
	Action     string         `bson:"action" json:"action"`
	Collection Collection     `bson:"collection" json:"collection"`
	RecordID   int64          `bson:"record_id" json:"record_id"`
	Payload    map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	Status     string         `bson:"status" json:"status"`
	Error      string         `bson:"error,omitempty" json:"error,omitempty"`
	Actor      string         `bson:"actor,omitempty" json:"actor,omitempty"`
	At         time.Time      `bson:"at" json:"at"`
}

const (
	ActionAddRental       = "add_rental"
	ActionAddTransaction  = "add_transaction"
	ActionUpdateStatus    = "update_status"
	ActionDelete          = "delete"
	EventStatusDone       = "done"
	EventStatusFailed     = "failed"
	EventStatusNotMatched = "not_found"
)

package models

import "time"

type EventKind string

const (
	EventTransactionAdded       EventKind = "transaction_added"
	EventTransactionUpdated     EventKind = "transaction_updated"
	EventTransactionDeleted     EventKind = "transaction_deleted"
	EventTransactionSoftDeleted EventKind = "transaction_soft_deleted"
	EventOccurrenceProjected    EventKind = "occurrence_projected"
	EventProjectionCompleted    EventKind = "projection_completed"
)

// Event is pushed to subscribers whenever the store changes.
type Event struct {
	Kind          EventKind `json:"type"`
	TransactionID int64     `json:"transactionId,omitempty"`
	Title         string    `json:"title,omitempty"`
	Date          string    `json:"date,omitempty"`
	Count         int       `json:"count,omitempty"`
	At            time.Time `json:"timestamp"`
}

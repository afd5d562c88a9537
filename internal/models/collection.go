package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionSummary aggregates a user's pending and collected cash.
type CollectionSummary struct {
	UserID            primitive.ObjectID `json:"userId"`
	PendingAmount     float64            `json:"pendingAmount"`
	CollectedAmount   float64            `json:"collectedAmount"`
	PendingCount      int64              `json:"pendingCount"`
	CollectedCount    int64              `json:"collectedCount"`
	OldestPendingDate *time.Time         `json:"oldestPendingDate,omitempty"`
}

// AdjustmentHistory is an original transaction together with every
// transaction that adjusts it.
type AdjustmentHistory struct {
	OriginalTransaction *Transaction   `json:"originalTransaction"`
	Adjustments         []*Transaction `json:"adjustments"`
	NetAmount           float64        `json:"netAmount"`
	AdjustmentCount     int            `json:"adjustmentCount"`
}

// CollectionUpdate carries the fields written when a transaction is marked collected.
type CollectionUpdate struct {
	CollectedAt     time.Time
	CollectedBy     *primitive.ObjectID
	CollectionNotes string
	ReceiptURL      string
}

package models

import (
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=500"`
}

type AdjustmentRequest struct {
	OriginalTransactionID string  `json:"originalTransactionId" validate:"required,object_id"`
	AdjustmentAmount      float64 `json:"adjustmentAmount" validate:"nonzero_amount"`
	AdjustmentReason      string  `json:"adjustmentReason" validate:"required,max=500"`
}

type CollectRequest struct {
	CollectionNotes string `json:"collectionNotes" validate:"max=1000"`
	ReceiptURL      string `json:"receiptUrl,omitempty" validate:"omitempty,url"`
}

// Ack is the acknowledgment envelope returned by mutating endpoints.
type Ack struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Actor identifies who performed a mutation on the server.
type Actor struct {
	ID   primitive.ObjectID
	Name string
}

func (a *Actor) IDPtr() *primitive.ObjectID {
	if a == nil || a.ID.IsZero() {
		return nil
	}
	id := a.ID
	return &id
}

// EntryRequest posts a ledger entry that has no dedicated operation: trip
// earnings, cash collections, expenses, bonuses and deductions.
type EntryRequest struct {
	UserType            UserType        `json:"userType" validate:"required,oneof=driver paramedic"`
	Type                TransactionType `json:"type" validate:"required,transaction_type"`
	Amount              float64         `json:"amount" validate:"nonzero_amount"`
	Description         string          `json:"description" validate:"max=500"`
	TripID              string          `json:"tripId,omitempty" validate:"omitempty,object_id"`
	FuelRecordID        string          `json:"fuelRecordId,omitempty" validate:"omitempty,object_id"`
	MaintenanceRecordID string          `json:"maintenanceRecordId,omitempty" validate:"omitempty,object_id"`
	PatientName         string          `json:"patientName,omitempty" validate:"max=200"`
	TransferFrom        string          `json:"transferFrom,omitempty" validate:"max=200"`
	TransferTo          string          `json:"transferTo,omitempty" validate:"max=200"`
}

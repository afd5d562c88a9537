package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string
type CollectionStatus string
type TransactionDirection string
type UserType string

const (
	TransactionTypeTripEarning        TransactionType = "trip_earning"
	TransactionTypeTripCollection     TransactionType = "trip_collection"
	TransactionTypePayment            TransactionType = "payment"
	TransactionTypeWithdrawal         TransactionType = "withdrawal"
	TransactionTypeAdjustment         TransactionType = "adjustment"
	TransactionTypeFuelExpense        TransactionType = "fuel_expense"
	TransactionTypeMaintenanceExpense TransactionType = "maintenance_expense"
	TransactionTypeBonus              TransactionType = "bonus"
	TransactionTypeDeduction          TransactionType = "deduction"

	CollectionStatusPending       CollectionStatus = "pending"
	CollectionStatusCollected     CollectionStatus = "collected"
	CollectionStatusNotApplicable CollectionStatus = "n/a"

	DirectionReceivable TransactionDirection = "receivable"
	DirectionPayable    TransactionDirection = "payable"
	DirectionNeutral    TransactionDirection = "neutral"

	UserTypeDriver    UserType = "driver"
	UserTypeParamedic UserType = "paramedic"
)

// TransactionTypes lists every known kind in display order.
var TransactionTypes = []TransactionType{
	TransactionTypeTripEarning,
	TransactionTypeTripCollection,
	TransactionTypePayment,
	TransactionTypeWithdrawal,
	TransactionTypeAdjustment,
	TransactionTypeFuelExpense,
	TransactionTypeMaintenanceExpense,
	TransactionTypeBonus,
	TransactionTypeDeduction,
}

// TransactionTypeLabels holds the human-readable names. Domain logic compares
// TransactionType values only, never these labels.
var TransactionTypeLabels = map[TransactionType]string{
	TransactionTypeTripEarning:        "Trip earning",
	TransactionTypeTripCollection:     "Trip cash collection",
	TransactionTypePayment:            "Payment",
	TransactionTypeWithdrawal:         "Withdrawal",
	TransactionTypeAdjustment:         "Adjustment",
	TransactionTypeFuelExpense:        "Fuel expense",
	TransactionTypeMaintenanceExpense: "Maintenance expense",
	TransactionTypeBonus:              "Bonus",
	TransactionTypeDeduction:          "Deduction",
}

var CollectionStatusLabels = map[CollectionStatus]string{
	CollectionStatusPending:       "Pending collection",
	CollectionStatusCollected:     "Collected",
	CollectionStatusNotApplicable: "Not applicable",
}

func (t TransactionType) IsValid() bool {
	_, ok := TransactionTypeLabels[t]
	return ok
}

// IsCollectible reports whether transactions of this kind carry a
// collection status other than n/a.
func (t TransactionType) IsCollectible() bool {
	return t == TransactionTypeTripCollection
}

// IsEarning reports whether the kind credits the user's wallet.
func (t TransactionType) IsEarning() bool {
	switch t {
	case TransactionTypeTripEarning, TransactionTypeBonus:
		return true
	}
	return false
}

// IsWithdrawal reports whether the kind pays money out to the user.
func (t TransactionType) IsWithdrawal() bool {
	switch t {
	case TransactionTypePayment, TransactionTypeWithdrawal:
		return true
	}
	return false
}

func (t TransactionType) Label() string {
	if label, ok := TransactionTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

func (s CollectionStatus) IsValid() bool {
	_, ok := CollectionStatusLabels[s]
	return ok
}

func (s CollectionStatus) Label() string {
	if label, ok := CollectionStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (u UserType) IsValid() bool {
	return u == UserTypeDriver || u == UserTypeParamedic
}

// ParseTransactionType converts a wire tag into a TransactionType, rejecting
// anything outside the closed set.
func ParseTransactionType(value string) (TransactionType, error) {
	t := TransactionType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown transaction type %q", value)
	}
	return t, nil
}

// DefaultCollectionStatus is the status a freshly created transaction of kind t starts in.
func DefaultCollectionStatus(t TransactionType) CollectionStatus {
	if t.IsCollectible() {
		return CollectionStatusPending
	}
	return CollectionStatusNotApplicable
}

// Transaction is an immutable ledger entry owned by the server.
type Transaction struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID   `json:"userId" bson:"user_id"`
	UserType      UserType             `json:"userType" bson:"user_type"`
	Type          TransactionType      `json:"type" bson:"type"`
	Amount        float64              `json:"amount" bson:"amount"`
	BalanceBefore float64              `json:"balanceBefore" bson:"balance_before"`
	BalanceAfter  float64              `json:"balanceAfter" bson:"balance_after"`
	TripID        *primitive.ObjectID  `json:"tripId,omitempty" bson:"trip_id,omitempty"`
	Description   string               `json:"description" bson:"description"`
	CreatedAt     time.Time            `json:"createdAt" bson:"created_at"`
	Direction     TransactionDirection `json:"direction,omitempty" bson:"direction,omitempty"`

	// Collection
	CollectionStatus CollectionStatus    `json:"collectionStatus" bson:"collection_status"`
	CollectedAt      *time.Time          `json:"collectedAt,omitempty" bson:"collected_at,omitempty"`
	CollectedBy      *primitive.ObjectID `json:"collectedBy,omitempty" bson:"collected_by,omitempty"`
	ReceiptURL       string              `json:"receiptUrl,omitempty" bson:"receipt_url,omitempty"`
	CollectionNotes  string              `json:"collectionNotes,omitempty" bson:"collection_notes,omitempty"`

	// Adjustment linkage
	RelatedTransactionID *primitive.ObjectID `json:"relatedTransactionId,omitempty" bson:"related_transaction_id,omitempty"`
	AdjustmentReason     string              `json:"adjustmentReason,omitempty" bson:"adjustment_reason,omitempty"`
	IsAdjustment         bool                `json:"isAdjustment" bson:"is_adjustment"`
	CreatedByID          *primitive.ObjectID `json:"createdById,omitempty" bson:"created_by_id,omitempty"`
	CreatedByName        string              `json:"createdByName,omitempty" bson:"created_by_name,omitempty"`

	// Expense linkage
	FuelRecordID        *primitive.ObjectID `json:"fuelRecordId,omitempty" bson:"fuel_record_id,omitempty"`
	MaintenanceRecordID *primitive.ObjectID `json:"maintenanceRecordId,omitempty" bson:"maintenance_record_id,omitempty"`

	// Trip display
	PatientName  string `json:"patientName,omitempty" bson:"patient_name,omitempty"`
	TransferFrom string `json:"transferFrom,omitempty" bson:"transfer_from,omitempty"`
	TransferTo   string `json:"transferTo,omitempty" bson:"transfer_to,omitempty"`
}

// IsPendingCollection reports whether the entry still awaits collection.
func (t *Transaction) IsPendingCollection() bool {
	return t.Type.IsCollectible() && t.CollectionStatus == CollectionStatusPending
}

// TransactionPage is one page of a user's transactions plus the total count
// reported by the server.
type TransactionPage struct {
	Data  []*Transaction `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// TransactionFilter narrows a user's transaction listing. Empty fields mean
// "no filter"; dates are YYYY-MM-DD strings passed through untouched by the client.
type TransactionFilter struct {
	Type      string `json:"type,omitempty" form:"type"`
	StartDate string `json:"startDate,omitempty" form:"startDate"`
	EndDate   string `json:"endDate,omitempty" form:"endDate"`
}

func (f TransactionFilter) IsEmpty() bool {
	return f.Type == "" && f.StartDate == "" && f.EndDate == ""
}

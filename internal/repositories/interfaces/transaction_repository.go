package interfaces

import (
	"context"
	"errors"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a transaction lookup matches nothing.
var ErrNotFound = errors.New("transaction not found")

// TransactionListFilter is the parsed form of a listing filter. From and To are
// inclusive bounds on created_at; nil means unbounded.
type TransactionListFilter struct {
	Type models.TransactionType
	From *time.Time
	To   *time.Time
}

type TransactionRepository interface {
	// Basic operations
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)

	// User ledger, newest first
	GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, filter *TransactionListFilter, params *utils.PaginationParams) ([]*models.Transaction, int64, error)

	// Adjustments of an original transaction, oldest first
	GetAdjustments(ctx context.Context, originalID primitive.ObjectID) ([]*models.Transaction, error)

	// Collection tracking. MarkCollected reports whether a pending entry was transitioned.
	MarkCollected(ctx context.Context, id primitive.ObjectID, update *models.CollectionUpdate) (bool, error)
	GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error)
}

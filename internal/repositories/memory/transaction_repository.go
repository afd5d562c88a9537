// Package memory holds an in-process TransactionRepository for tests and
// for running the ledger server without MongoDB.
package memory

import (
	"bytes"
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/repositories/interfaces"
	"ambulance-finance/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type transactionRepository struct {
	mu           sync.RWMutex
	transactions map[primitive.ObjectID]*models.Transaction
	now          func() time.Time
}

func NewTransactionRepository() interfaces.TransactionRepository {
	return &transactionRepository{
		transactions: make(map[primitive.ObjectID]*models.Transaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = r.now()
	}

	stored := *txn
	r.mu.Lock()
	r.transactions[stored.ID] = &stored
	r.mu.Unlock()
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txn, ok := r.transactions[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	out := *txn
	return &out, nil
}

func (r *transactionRepository) GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Transaction, error) {
	matches := r.selectSorted(func(t *models.Transaction) bool { return t.UserID == userID }, newestFirst)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, filter *interfaces.TransactionListFilter, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	matches := r.selectSorted(func(t *models.Transaction) bool {
		if t.UserID != userID {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.Type != "" && t.Type != filter.Type {
			return false
		}
		if filter.From != nil && t.CreatedAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && t.CreatedAt.After(*filter.To) {
			return false
		}
		return true
	}, newestFirst)

	total := int64(len(matches))
	start := params.GetSkip()
	if start >= len(matches) {
		return []*models.Transaction{}, total, nil
	}
	end := start + params.GetLimit()
	if end > len(matches) {
		end = len(matches)
	}

	return matches[start:end], total, nil
}

func (r *transactionRepository) GetAdjustments(ctx context.Context, originalID primitive.ObjectID) ([]*models.Transaction, error) {
	return r.selectSorted(func(t *models.Transaction) bool {
		return t.IsAdjustment && t.RelatedTransactionID != nil && *t.RelatedTransactionID == originalID
	}, oldestFirst), nil
}

func (r *transactionRepository) MarkCollected(ctx context.Context, id primitive.ObjectID, update *models.CollectionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.transactions[id]
	if !ok || txn.CollectionStatus != models.CollectionStatusPending {
		return false, nil
	}

	collectedAt := update.CollectedAt
	txn.CollectionStatus = models.CollectionStatusCollected
	txn.CollectedAt = &collectedAt
	txn.CollectionNotes = update.CollectionNotes
	if update.CollectedBy != nil {
		by := *update.CollectedBy
		txn.CollectedBy = &by
	}
	if update.ReceiptURL != "" {
		txn.ReceiptURL = update.ReceiptURL
	}
	return true, nil
}

func (r *transactionRepository) GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error) {
	matches := r.selectSorted(func(t *models.Transaction) bool {
		return t.UserID == userID && t.Type.IsCollectible()
	}, oldestFirst)

	summary := &models.CollectionSummary{UserID: userID}
	for _, t := range matches {
		switch t.CollectionStatus {
		case models.CollectionStatusPending:
			summary.PendingAmount += math.Abs(t.Amount)
			summary.PendingCount++
			if summary.OldestPendingDate == nil {
				oldest := t.CreatedAt
				summary.OldestPendingDate = &oldest
			}
		case models.CollectionStatusCollected:
			summary.CollectedAmount += math.Abs(t.Amount)
			summary.CollectedCount++
		}
	}
	return summary, nil
}

func (r *transactionRepository) selectSorted(match func(*models.Transaction) bool, less func(a, b *models.Transaction) bool) []*models.Transaction {
	r.mu.RLock()
	out := make([]*models.Transaction, 0)
	for _, t := range r.transactions {
		if match(t) {
			copied := *t
			out = append(out, &copied)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b *models.Transaction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

func oldestFirst(a, b *models.Transaction) bool {
	return newestFirst(b, a)
}

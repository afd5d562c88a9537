package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/repositories/interfaces"
	"ambulance-finance/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database, collection string) interfaces.TransactionRepository {
	return &transactionRepository{
		collection: db.Collection(collection),
	}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

func (r *transactionRepository) GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Transaction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest transaction: %w", err)
	}

	return &txn, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, filter *interfaces.TransactionListFilter, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	query := bson.M{"user_id": userID}

	if filter != nil {
		if filter.Type != "" {
			query["type"] = filter.Type
		}
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		if len(dateRange) > 0 {
			query["created_at"] = dateRange
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetFindOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	transactions := make([]*models.Transaction, 0, params.Limit)
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode transactions: %w", err)
	}

	return transactions, total, nil
}

func (r *transactionRepository) GetAdjustments(ctx context.Context, originalID primitive.ObjectID) ([]*models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{
		"related_transaction_id": originalID,
		"is_adjustment":          true,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustments: %w", err)
	}
	defer cursor.Close(ctx)

	adjustments := []*models.Transaction{}
	if err := cursor.All(ctx, &adjustments); err != nil {
		return nil, fmt.Errorf("failed to decode adjustments: %w", err)
	}

	return adjustments, nil
}

func (r *transactionRepository) MarkCollected(ctx context.Context, id primitive.ObjectID, update *models.CollectionUpdate) (bool, error) {
	set := bson.M{
		"collection_status": models.CollectionStatusCollected,
		"collected_at":      update.CollectedAt,
		"collection_notes":  update.CollectionNotes,
	}
	if update.CollectedBy != nil {
		set["collected_by"] = *update.CollectedBy
	}
	if update.ReceiptURL != "" {
		set["receipt_url"] = update.ReceiptURL
	}

	// The status guard makes concurrent collects race-free: only one can match.
	result, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":               id,
		"collection_status": models.CollectionStatusPending,
	}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction collected: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *transactionRepository) GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error) {
	collectible := make([]models.TransactionType, 0, 1)
	for _, t := range models.TransactionTypes {
		if t.IsCollectible() {
			collectible = append(collectible, t)
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id": userID,
			"type":    bson.M{"$in": collectible},
			"collection_status": bson.M{"$in": []models.CollectionStatus{
				models.CollectionStatusPending,
				models.CollectionStatusCollected,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$collection_status",
			"amount": bson.M{"$sum": bson.M{"$abs": "$amount"}},
			"count":  bson.M{"$sum": 1},
			"oldest": bson.M{"$min": "$created_at"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection summary: %w", err)
	}
	defer cursor.Close(ctx)

	summary := &models.CollectionSummary{UserID: userID}
	for cursor.Next(ctx) {
		var group struct {
			Status models.CollectionStatus `bson:"_id"`
			Amount float64                 `bson:"amount"`
			Count  int64                   `bson:"count"`
			Oldest time.Time               `bson:"oldest"`
		}
		if err := cursor.Decode(&group); err != nil {
			return nil, fmt.Errorf("failed to decode collection summary: %w", err)
		}

		switch group.Status {
		case models.CollectionStatusPending:
			summary.PendingAmount = group.Amount
			summary.PendingCount = group.Count
			oldest := group.Oldest
			summary.OldestPendingDate = &oldest
		case models.CollectionStatusCollected:
			summary.CollectedAmount = group.Amount
			summary.CollectedCount = group.Count
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read collection summary: %w", err)
	}

	return summary, nil
}

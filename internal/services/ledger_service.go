package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/repositories/interfaces"
	"ambulance-finance/internal/utils"
	"ambulance-finance/pkg/cache"
	"ambulance-finance/pkg/logger"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTransactionNotFound  = errors.New(utils.ErrTransactionNotFound)
	ErrNotCollectible       = errors.New(utils.ErrTransactionNotCollectible)
	ErrInvalidAmount        = errors.New("amount must be a non-zero number")
	ErrInvalidAdjustment    = errors.New("adjustments cannot target another adjustment")
	ErrUnsupportedEntryType = errors.New("entry type has a dedicated operation")
	ErrInvalidFilter        = errors.New("invalid transaction filter")
	ErrInvalidUserType      = errors.New("invalid user type")
)

// WalletEventPublisher announces that a user's transactions changed.
type WalletEventPublisher interface {
	PublishWalletChange(ctx context.Context, userID primitive.ObjectID, event string, transactionID primitive.ObjectID) error
}

type LedgerService interface {
	ListTransactions(ctx context.Context, userID primitive.ObjectID, filter *models.TransactionFilter, params *utils.PaginationParams) (*models.TransactionPage, error)
	GetTransaction(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)

	// Postings
	RecordEntry(ctx context.Context, userID primitive.ObjectID, req *models.EntryRequest, actor *models.Actor) (*models.Transaction, error)
	ProcessPayment(ctx context.Context, userID primitive.ObjectID, userType models.UserType, req *models.PaymentRequest, actor *models.Actor) (*models.Transaction, error)
	CreateAdjustment(ctx context.Context, req *models.AdjustmentRequest, actor *models.Actor) (*models.Transaction, error)

	// Collection tracking
	MarkAsCollected(ctx context.Context, id primitive.ObjectID, req *models.CollectRequest, actor *models.Actor) (*models.Transaction, error)
	GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error)

	GetAdjustmentHistory(ctx context.Context, id primitive.ObjectID) (*models.AdjustmentHistory, error)
}

type ledgerService struct {
	repo       interfaces.TransactionRepository
	cache      cache.Cache
	publisher  WalletEventPublisher
	logger     *logger.Logger
	summaryTTL time.Duration
	userLocks  *keyedMutex
	now        func() time.Time
}

func NewLedgerService(
	repo interfaces.TransactionRepository,
	cache cache.Cache,
	publisher WalletEventPublisher,
	logger *logger.Logger,
	summaryTTL time.Duration,
) LedgerService {
	return &ledgerService{
		repo:       repo,
		cache:      cache,
		publisher:  publisher,
		logger:     logger,
		summaryTTL: summaryTTL,
		userLocks:  newKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter *models.TransactionFilter, params *utils.PaginationParams) (*models.TransactionPage, error) {
	listFilter, err := parseListFilter(filter)
	if err != nil {
		return nil, err
	}

	transactions, total, err := s.repo.ListByUser(ctx, userID, listFilter, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &models.TransactionPage{
		Data:  transactions,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

func (s *ledgerService) RecordEntry(ctx context.Context, userID primitive.ObjectID, req *models.EntryRequest, actor *models.Actor) (*models.Transaction, error) {
	switch req.Type {
	case models.TransactionTypePayment, models.TransactionTypeAdjustment:
		return nil, ErrUnsupportedEntryType
	}
	if !req.UserType.IsValid() {
		return nil, ErrInvalidUserType
	}
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	txn := &models.Transaction{
		UserID:        userID,
		UserType:      req.UserType,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		Direction:     directionFor(req.Amount),
		PatientName:   req.PatientName,
		TransferFrom:  req.TransferFrom,
		TransferTo:    req.TransferTo,
		CreatedByID:   actor.IDPtr(),
		CreatedByName: actorName(actor),
	}
	txn.TripID = optionalObjectID(req.TripID)
	txn.FuelRecordID = optionalObjectID(req.FuelRecordID)
	txn.MaintenanceRecordID = optionalObjectID(req.MaintenanceRecordID)
	if txn.Description == "" {
		txn.Description = req.Type.Label()
	}

	if err := s.post(ctx, txn); err != nil {
		return nil, err
	}

	s.afterPosting(ctx, txn, utils.EventTransactionCreated)
	return txn, nil
}

// ProcessPayment records a payout; the stored amount is the negated request amount.
func (s *ledgerService) ProcessPayment(ctx context.Context, userID primitive.ObjectID, userType models.UserType, req *models.PaymentRequest, actor *models.Actor) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if userType == "" {
		// Inherit the user type from the ledger when the caller does not name it.
		latest, err := s.repo.GetLatestByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user type: %w", err)
		}
		userType = models.UserTypeDriver
		if latest != nil && latest.UserType.IsValid() {
			userType = latest.UserType
		}
	}
	if !userType.IsValid() {
		return nil, ErrInvalidUserType
	}

	description := req.Description
	if description == "" {
		description = models.TransactionTypePayment.Label()
	}

	txn := &models.Transaction{
		UserID:        userID,
		UserType:      userType,
		Type:          models.TransactionTypePayment,
		Amount:        -req.Amount,
		Description:   description,
		Direction:     models.DirectionPayable,
		CreatedByID:   actor.IDPtr(),
		CreatedByName: actorName(actor),
	}

	if err := s.post(ctx, txn); err != nil {
		return nil, err
	}

	s.logger.WithUserID(userID).LogTransactionEvent(txn.ID, utils.EventPaymentProcessed, txn.Amount, nil)
	s.afterPosting(ctx, txn, utils.EventPaymentProcessed)
	return txn, nil
}

func (s *ledgerService) CreateAdjustment(ctx context.Context, req *models.AdjustmentRequest, actor *models.Actor) (*models.Transaction, error) {
	if req.AdjustmentAmount == 0 {
		return nil, ErrInvalidAmount
	}

	originalID, err := primitive.ObjectIDFromHex(req.OriginalTransactionID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	original, err := s.GetTransaction(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original.IsAdjustment {
		return nil, ErrInvalidAdjustment
	}

	txn := &models.Transaction{
		UserID:               original.UserID,
		UserType:             original.UserType,
		Type:                 models.TransactionTypeAdjustment,
		Amount:               req.AdjustmentAmount,
		TripID:               original.TripID,
		Description:          fmt.Sprintf("Adjustment: %s", req.AdjustmentReason),
		Direction:            directionFor(req.AdjustmentAmount),
		RelatedTransactionID: &original.ID,
		AdjustmentReason:     req.AdjustmentReason,
		IsAdjustment:         true,
		CreatedByID:          actor.IDPtr(),
		CreatedByName:        actorName(actor),
	}

	if err := s.post(ctx, txn); err != nil {
		return nil, err
	}

	s.logger.WithUserID(txn.UserID).LogTransactionEvent(txn.ID, utils.EventAdjustmentCreated, txn.Amount, map[string]interface{}{
		"original_transaction_id": original.ID.Hex(),
	})
	s.afterPosting(ctx, txn, utils.EventAdjustmentCreated)
	return txn, nil
}

// MarkAsCollected transitions a pending collectible entry to collected. Repeating
// the call on a collected entry returns it unchanged.
func (s *ledgerService) MarkAsCollected(ctx context.Context, id primitive.ObjectID, req *models.CollectRequest, actor *models.Actor) (*models.Transaction, error) {
	txn, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !txn.Type.IsCollectible() {
		return nil, ErrNotCollectible
	}
	if txn.CollectionStatus == models.CollectionStatusCollected {
		s.logger.WithUserID(txn.UserID).WithTransactionID(txn.ID).Debug("Transaction already collected")
		return txn, nil
	}

	updated, err := s.repo.MarkCollected(ctx, id, &models.CollectionUpdate{
		CollectedAt:     s.now(),
		CollectedBy:     actor.IDPtr(),
		CollectionNotes: req.CollectionNotes,
		ReceiptURL:      req.ReceiptURL,
	})
	if err != nil {
		return nil, err
	}

	txn, err = s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if updated {
		s.logger.WithUserID(txn.UserID).LogTransactionEvent(txn.ID, utils.EventTransactionCollected, txn.Amount, map[string]interface{}{
			"collected_by": actorName(actor),
		})
		s.invalidateSummary(ctx, txn.UserID)
		s.publish(ctx, txn.UserID, utils.EventTransactionCollected, txn.ID)
	}

	return txn, nil
}

func (s *ledgerService) GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error) {
	key := utils.CacheCollectionSummaryPrefix + userID.Hex()

	var cached models.CollectionSummary
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithUserID(userID).WithError(err).Warn("Collection summary cache read failed")
	}

	// Fill under the user lock; invalidateSummary takes the same lock, so a
	// fill that read the repository before a write cannot outlive its invalidation.
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	summary, err := s.repo.GetCollectionSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection summary: %w", err)
	}

	if err := s.cache.Set(ctx, key, summary, s.summaryTTL); err != nil {
		s.logger.WithUserID(userID).WithError(err).Warn("Collection summary cache write failed")
	}

	return summary, nil
}

func (s *ledgerService) GetAdjustmentHistory(ctx context.Context, id primitive.ObjectID) (*models.AdjustmentHistory, error) {
	original, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	adjustments, err := s.repo.GetAdjustments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustments: %w", err)
	}

	net := decimal.NewFromFloat(original.Amount)
	for _, adj := range adjustments {
		net = net.Add(decimal.NewFromFloat(adj.Amount))
	}

	return &models.AdjustmentHistory{
		OriginalTransaction: original,
		Adjustments:         adjustments,
		NetAmount:           net.Round(2).InexactFloat64(),
		AdjustmentCount:     len(adjustments),
	}, nil
}

// post rounds txn.Amount to cents, chains it onto the user's running balance
// and stores it. Amounts that round to zero are rejected.
func (s *ledgerService) post(ctx context.Context, txn *models.Transaction) error {
	amount := decimal.NewFromFloat(txn.Amount).Round(2)
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	txn.Amount = amount.InexactFloat64()

	unlock := s.userLocks.Lock(txn.UserID)
	defer unlock()

	latest, err := s.repo.GetLatestByUser(ctx, txn.UserID)
	if err != nil {
		return fmt.Errorf("failed to read running balance: %w", err)
	}

	createdAt := s.now()
	before := decimal.Zero
	if latest != nil {
		before = decimal.NewFromFloat(latest.BalanceAfter).Round(2)
		// Keep created_at strictly increasing so "latest" is always the newest posting.
		if !createdAt.After(latest.CreatedAt) {
			createdAt = latest.CreatedAt.Add(time.Millisecond)
		}
	}

	txn.ID = primitive.NewObjectID()
	txn.CreatedAt = createdAt
	txn.BalanceBefore = before.InexactFloat64()
	txn.BalanceAfter = before.Add(amount).InexactFloat64()
	if txn.CollectionStatus == "" {
		txn.CollectionStatus = models.DefaultCollectionStatus(txn.Type)
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to store transaction: %w", err)
	}
	s.logger.WithUserID(txn.UserID).WithTransactionID(txn.ID).WithFields(map[string]interface{}{
		"type":          txn.Type,
		"balance_after": txn.BalanceAfter,
	}).Debug("Transaction posted")
	return nil
}

func (s *ledgerService) afterPosting(ctx context.Context, txn *models.Transaction, event string) {
	if txn.Type.IsCollectible() {
		s.invalidateSummary(ctx, txn.UserID)
	}
	s.publish(ctx, txn.UserID, event, txn.ID)
}

// invalidateSummary must run after the write it follows and outside post's lock.
func (s *ledgerService) invalidateSummary(ctx context.Context, userID primitive.ObjectID) {
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	if err := s.cache.Delete(ctx, utils.CacheCollectionSummaryPrefix+userID.Hex()); err != nil {
		s.logger.WithUserID(userID).WithError(err).Warn("Failed to invalidate collection summary")
	}
}

func (s *ledgerService) publish(ctx context.Context, userID primitive.ObjectID, event string, transactionID primitive.ObjectID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishWalletChange(ctx, userID, event, transactionID); err != nil {
		s.logger.WithUserID(userID).WithTransactionID(transactionID).WithError(err).Warn("Failed to publish wallet change")
	}
}

func parseListFilter(filter *models.TransactionFilter) (*interfaces.TransactionListFilter, error) {
	if filter == nil || filter.IsEmpty() {
		return nil, nil
	}

	out := &interfaces.TransactionListFilter{}
	if filter.Type != "" {
		t, err := models.ParseTransactionType(filter.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		out.Type = t
	}
	if filter.StartDate != "" {
		from, err := utils.ParseDate(filter.StartDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		out.From = &from
	}
	if filter.EndDate != "" {
		to, err := utils.ParseDate(filter.EndDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		// End dates are inclusive of the whole day.
		to = utils.EndOfDay(to)
		out.To = &to
	}
	return out, nil
}

func directionFor(amount float64) models.TransactionDirection {
	switch {
	case amount > 0:
		return models.DirectionReceivable
	case amount < 0:
		return models.DirectionPayable
	}
	return models.DirectionNeutral
}

func optionalObjectID(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

func actorName(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.Name
}

package handlers

import (
	"errors"
	"net/http"

	"ambulance-finance/internal/middleware"
	"ambulance-finance/internal/models"
	"ambulance-finance/internal/services"
	"ambulance-finance/internal/utils"
	"ambulance-finance/internal/validators"
	"ambulance-finance/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionHandler struct {
	ledgerService services.LedgerService
	logger        *logger.Logger
}

func NewTransactionHandler(ledgerService services.LedgerService, logger *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// GetUserTransactions returns one page of a user's transactions, newest first
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, ok := h.objectIDParam(c, "user")
	if !ok {
		return
	}

	var filter models.TransactionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BadRequestResponse(c, "Invalid query: "+err.Error())
		return
	}
	if errs := validators.ValidateFilter(&filter); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	page, err := h.ledgerService.ListTransactions(c.Request.Context(), userID, &filter, utils.GetPaginationParams(c))
	if err != nil {
		h.handleServiceError(c, err, "TRANSACTIONS_FETCH_FAILED")
		return
	}

	utils.JSONResponse(c, page)
}

// ProcessPayment records a payout to the user
func (h *TransactionHandler) ProcessPayment(c *gin.Context) {
	userID, ok := h.objectIDParam(c, "user")
	if !ok {
		return
	}

	var request models.PaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidatePayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	txn, err := h.ledgerService.ProcessPayment(c.Request.Context(), userID, "", &request, middleware.GetActor(c))
	if err != nil {
		h.handleServiceError(c, err, "PAYMENT_FAILED")
		return
	}

	utils.CreatedResponse(c, "Payment processed successfully", txn)
}

// RecordEntry posts a trip, collection or expense entry for the user
func (h *TransactionHandler) RecordEntry(c *gin.Context) {
	userID, ok := h.objectIDParam(c, "user")
	if !ok {
		return
	}

	var request models.EntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateEntry(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	txn, err := h.ledgerService.RecordEntry(c.Request.Context(), userID, &request, middleware.GetActor(c))
	if err != nil {
		h.handleServiceError(c, err, "ENTRY_FAILED")
		return
	}

	utils.CreatedResponse(c, "Transaction recorded successfully", txn)
}

// CreateAdjustment links a correcting entry to an existing transaction
func (h *TransactionHandler) CreateAdjustment(c *gin.Context) {
	var request models.AdjustmentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateAdjustment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	txn, err := h.ledgerService.CreateAdjustment(c.Request.Context(), &request, middleware.GetActor(c))
	if err != nil {
		h.handleServiceError(c, err, "ADJUSTMENT_FAILED")
		return
	}

	utils.CreatedResponse(c, "Adjustment created successfully", txn)
}

// MarkAsCollected marks a pending cash collection as collected
func (h *TransactionHandler) MarkAsCollected(c *gin.Context) {
	transactionID, ok := h.objectIDParam(c, "transaction")
	if !ok {
		return
	}

	var request models.CollectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateCollect(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	txn, err := h.ledgerService.MarkAsCollected(c.Request.Context(), transactionID, &request, middleware.GetActor(c))
	if err != nil {
		h.handleServiceError(c, err, "COLLECT_FAILED")
		return
	}

	utils.SuccessResponse(c, "Transaction marked as collected", txn)
}

// GetAdjustmentHistory returns a transaction with all of its adjustments
func (h *TransactionHandler) GetAdjustmentHistory(c *gin.Context) {
	transactionID, ok := h.objectIDParam(c, "transaction")
	if !ok {
		return
	}

	history, err := h.ledgerService.GetAdjustmentHistory(c.Request.Context(), transactionID)
	if err != nil {
		h.handleServiceError(c, err, "ADJUSTMENTS_FETCH_FAILED")
		return
	}

	utils.JSONResponse(c, history)
}

// GetCollectionSummary returns pending and collected cash totals for a user
func (h *TransactionHandler) GetCollectionSummary(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	summary, err := h.ledgerService.GetCollectionSummary(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err, "SUMMARY_FETCH_FAILED")
		return
	}

	utils.JSONResponse(c, summary)
}

// objectIDParam parses the shared :id path segment; kind names it in the error.
func (h *TransactionHandler) objectIDParam(c *gin.Context, kind string) (primitive.ObjectID, bool) {
	id, err := objectID(c)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+kind+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *TransactionHandler) handleServiceError(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		utils.NotFoundResponse(c, "Transaction")
	case errors.Is(err, services.ErrNotCollectible):
		utils.ConflictResponse(c, utils.ErrTransactionNotCollectible)
	case errors.Is(err, services.ErrInvalidAdjustment):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidFilter),
		errors.Is(err, services.ErrInvalidUserType),
		errors.Is(err, services.ErrUnsupportedEntryType):
		utils.ErrorResponse(c, http.StatusBadRequest, code, err.Error())
	default:
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(code)
		utils.InternalServerErrorResponse(c)
	}
}

func objectID(c *gin.Context) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Param("id"))
}

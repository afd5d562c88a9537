package handlers

import (
	"errors"
	"net/http"

	"ambulance-finance/internal/receipts"
	"ambulance-finance/internal/services"
	"ambulance-finance/internal/utils"
	"ambulance-finance/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	ledgerService services.LedgerService
	uploader      *receipts.Uploader
	logger        *logger.Logger
}

func NewReceiptHandler(ledgerService services.LedgerService, uploader *receipts.Uploader, logger *logger.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		ledgerService: ledgerService,
		uploader:      uploader,
		logger:        logger,
	}
}

// UploadReceipt stores the multipart "file" field for an existing transaction
func (h *ReceiptHandler) UploadReceipt(c *gin.Context) {
	id, err := objectID(c)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID")
		return
	}

	if _, err := h.ledgerService.GetTransaction(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Receipt file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Receipt file could not be read")
		return
	}
	defer file.Close()

	resp, err := h.uploader.Upload(c.Request.Context(), id.Hex(), fileHeader.Filename, file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Receipt uploaded successfully", resp)
}

// ListReceipts returns the receipts stored for a transaction
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	id, err := objectID(c)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID")
		return
	}

	files, err := h.uploader.List(c.Request.Context(), id.Hex())
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, files)
}

func (h *ReceiptHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		utils.NotFoundResponse(c, "Transaction")
	case errors.Is(err, receipts.ErrUnsupportedFile),
		errors.Is(err, receipts.ErrReceiptTooLarge),
		errors.Is(err, receipts.ErrInvalidTransactionID):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_RECEIPT", err.Error())
	default:
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("RECEIPT_FAILED")
		utils.InternalServerErrorResponse(c)
	}
}

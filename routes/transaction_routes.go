package routes

import (
	"ambulance-finance/internal/handlers"
	"ambulance-finance/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupTransactionRoutes registers the wallet ledger contract.
func SetupTransactionRoutes(r gin.IRouter, transactionHandler *handlers.TransactionHandler) {
	transactions := r.Group("/transactions")
	{
		// Static segments first; :id is a user ID or a transaction ID depending on the action
		transactions.POST("/adjustments", transactionHandler.CreateAdjustment)
		transactions.GET("/collection-summary/:userId", transactionHandler.GetCollectionSummary)

		// User ledger
		transactions.GET("/:id", transactionHandler.GetUserTransactions)
		transactions.POST("/:id/pay", transactionHandler.ProcessPayment)
		transactions.POST("/:id/entries", transactionHandler.RecordEntry)

		// Single transaction
		transactions.PATCH("/:id/collect", transactionHandler.MarkAsCollected)
		transactions.GET("/:id/adjustments", transactionHandler.GetAdjustmentHistory)
	}
}

// SetupReceiptRoutes registers receipt upload and listing for a transaction.
func SetupReceiptRoutes(r gin.IRouter, receiptHandler *handlers.ReceiptHandler) {
	receipts := r.Group("/transactions")
	{
		receipts.POST("/:id/receipts", receiptHandler.UploadReceipt)
		receipts.GET("/:id/receipts", receiptHandler.ListReceipts)
	}
}

// SetupWalletSocketRoutes registers the per-user change notice stream.
func SetupWalletSocketRoutes(r gin.IRouter, path string, socketHandler *websocket.Handler) {
	r.GET(path+"/wallet/:userId", socketHandler.HandleWalletSocket)
}

func SetupHealthRoutes(r gin.IRouter, healthHandler *handlers.HealthHandler) {
	r.GET("/health", healthHandler.Health)
}

package utils

// Application Constants
const (
	AppName    = "AmbulanceFinance"
	AppVersion = "1.0.0"

	DefaultCurrency = "USD"

	// Pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// DateLayout is the wire format of every date filter.
	DateLayout = "2006-01-02"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer            = "internal server error"
	ErrValidationFailed          = "validation failed"
	ErrTransactionNotFound       = "transaction not found"
	ErrTransactionNotCollectible = "transaction is not collectible"
)

// Cache Keys
const (
	CacheCollectionSummaryPrefix = "collection_summary:"
)

// Event Types
const (
	EventTransactionCreated   = "transaction_created"
	EventTransactionCollected = "transaction_collected"
	EventPaymentProcessed     = "payment_processed"
	EventAdjustmentCreated    = "adjustment_created"
)

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	requestIDHeader   = "X-Request-ID"
	DefaultSocketPath = "/ws"
)

// TransactionQuery selects one page of a user's transactions. Empty filter
// fields are omitted from the request; dates are YYYY-MM-DD.
type TransactionQuery struct {
	Page      int
	Limit     int
	Type      string
	StartDate string
	EndDate   string
}

// TransactionAPI is the ledger contract consumed by the views.
type TransactionAPI interface {
	GetUserTransactions(ctx context.Context, userID string, query TransactionQuery) (*models.TransactionPage, error)
	ProcessPayment(ctx context.Context, userID string, amount float64, description string) (*models.Ack, error)
	CreateAdjustment(ctx context.Context, originalTransactionID string, adjustmentAmount float64, adjustmentReason string) (*models.Ack, error)
	MarkAsCollected(ctx context.Context, transactionID, collectionNotes, receiptURL string) (*models.Ack, error)
	GetAdjustmentHistory(ctx context.Context, transactionID string) (*models.AdjustmentHistory, error)
	GetCollectionSummary(ctx context.Context, userID string) (*models.CollectionSummary, error)
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	AccessToken string
	UserAgent   string
	// SocketPath is where the server mounts its websocket routes, relative
	// to BaseURL. Defaults to DefaultSocketPath.
	SocketPath string
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// TransactionClient issues exactly one HTTP call per operation: no retries,
// no caching and no batching.
type TransactionClient struct {
	baseURL     *url.URL
	httpClient  *http.Client
	accessToken string
	userAgent   string
	socketPath  string
	logger      *logger.Logger
}

func NewTransactionClient(config Config, log *logger.Logger) (*TransactionClient, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if log == nil {
		log = logger.NewNop()
	}
	socketPath := "/" + strings.Trim(config.SocketPath, "/")
	if socketPath == "/" {
		socketPath = DefaultSocketPath
	}

	return &TransactionClient{
		baseURL:     base,
		httpClient:  httpClient,
		accessToken: config.AccessToken,
		userAgent:   config.UserAgent,
		socketPath:  socketPath,
		logger:      log,
	}, nil
}

func (c *TransactionClient) GetUserTransactions(ctx context.Context, userID string, query TransactionQuery) (*models.TransactionPage, error) {
	if query.Page < 1 || query.Limit <= 0 {
		return nil, ErrInvalidPagination
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("limit", strconv.Itoa(query.Limit))
	if query.Type != "" {
		params.Set("type", query.Type)
	}
	if query.StartDate != "" {
		params.Set("startDate", query.StartDate)
	}
	if query.EndDate != "" {
		params.Set("endDate", query.EndDate)
	}

	var page models.TransactionPage
	if err := c.do(ctx, http.MethodGet, c.path("transactions", userID), params, nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []*models.Transaction{}
	}
	return &page, nil
}

func (c *TransactionClient) ProcessPayment(ctx context.Context, userID string, amount float64, description string) (*models.Ack, error) {
	body := models.PaymentRequest{Amount: amount, Description: description}

	var ack models.Ack
	if err := c.do(ctx, http.MethodPost, c.path("transactions", userID, "pay"), nil, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *TransactionClient) CreateAdjustment(ctx context.Context, originalTransactionID string, adjustmentAmount float64, adjustmentReason string) (*models.Ack, error) {
	body := models.AdjustmentRequest{
		OriginalTransactionID: originalTransactionID,
		AdjustmentAmount:      adjustmentAmount,
		AdjustmentReason:      adjustmentReason,
	}

	var ack models.Ack
	if err := c.do(ctx, http.MethodPost, c.path("transactions", "adjustments"), nil, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *TransactionClient) MarkAsCollected(ctx context.Context, transactionID, collectionNotes, receiptURL string) (*models.Ack, error) {
	body := models.CollectRequest{CollectionNotes: collectionNotes, ReceiptURL: receiptURL}

	var ack models.Ack
	if err := c.do(ctx, http.MethodPatch, c.path("transactions", transactionID, "collect"), nil, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *TransactionClient) GetAdjustmentHistory(ctx context.Context, transactionID string) (*models.AdjustmentHistory, error) {
	var history models.AdjustmentHistory
	if err := c.do(ctx, http.MethodGet, c.path("transactions", transactionID, "adjustments"), nil, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (c *TransactionClient) GetCollectionSummary(ctx context.Context, userID string) (*models.CollectionSummary, error) {
	var summary models.CollectionSummary
	if err := c.do(ctx, http.MethodGet, c.path("transactions", "collection-summary", userID), nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RecordEntry posts a trip, collection or expense entry on the reference ledger.
func (c *TransactionClient) RecordEntry(ctx context.Context, userID string, entry *models.EntryRequest) (*models.Ack, error) {
	var ack models.Ack
	if err := c.do(ctx, http.MethodPost, c.path("transactions", userID, "entries"), nil, entry, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *TransactionClient) path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// endpoint joins an already escaped path onto the base URL.
func (c *TransactionClient) endpoint(path string, query url.Values) string {
	endpoint := c.baseURL.String() + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *TransactionClient) do(ctx context.Context, method, path string, query url.Values, body, dest interface{}) error {
	if body == nil {
		return c.send(ctx, method, path, query, nil, "", dest)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}
	return c.send(ctx, method, path, query, bytes.NewReader(data), "application/json", dest)
}

// send issues one request with an already encoded body and decodes a 2xx
// JSON response into dest.
func (c *TransactionClient) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithRequestID(requestID).WithError(err).Debugf("%s %s failed", method, path)
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.WithRequestID(requestID).WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Ledger request completed")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data, requestID)
	}

	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIError(status int, body []byte, requestID string) error {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		} else {
			apiErr.Message = env.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

var _ TransactionAPI = (*TransactionClient)(nil)

// AsAPIError unwraps err into an *APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

package views

import (
	"context"
	"errors"
	"sync"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/models"
)

var errUnavailable = errors.New("ledger unavailable")

type fakeAPI struct {
	mu         sync.Mutex
	queries    []client.TransactionQuery
	pageFn     func(q client.TransactionQuery) (*models.TransactionPage, error)
	summary    *models.CollectionSummary
	summaryErr error
}

func (f *fakeAPI) GetUserTransactions(ctx context.Context, userID string, q client.TransactionQuery) (*models.TransactionPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.pageFn
	f.mu.Unlock()
	if fn == nil {
		return &models.TransactionPage{Data: []*models.Transaction{}, Page: q.Page, Limit: q.Limit}, nil
	}
	return fn(q)
}

func (f *fakeAPI) ProcessPayment(ctx context.Context, userID string, amount float64, description string) (*models.Ack, error) {
	return &models.Ack{Status: "success"}, nil
}

func (f *fakeAPI) CreateAdjustment(ctx context.Context, originalTransactionID string, adjustmentAmount float64, adjustmentReason string) (*models.Ack, error) {
	return &models.Ack{Status: "success"}, nil
}

func (f *fakeAPI) MarkAsCollected(ctx context.Context, transactionID, collectionNotes, receiptURL string) (*models.Ack, error) {
	return &models.Ack{Status: "success"}, nil
}

func (f *fakeAPI) GetAdjustmentHistory(ctx context.Context, transactionID string) (*models.AdjustmentHistory, error) {
	return &models.AdjustmentHistory{}, nil
}

func (f *fakeAPI) GetCollectionSummary(ctx context.Context, userID string) (*models.CollectionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, f.summaryErr
}

func (f *fakeAPI) setPages(fn func(q client.TransactionQuery) (*models.TransactionPage, error)) {
	f.mu.Lock()
	f.pageFn = fn
	f.mu.Unlock()
}

func (f *fakeAPI) recorded() []client.TransactionQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.TransactionQuery(nil), f.queries...)
}

// pendingCall is a GetUserTransactions call held until the test replies.
type pendingCall struct {
	query client.TransactionQuery
	reply chan pageResult
}

type pageResult struct {
	page *models.TransactionPage
	err  error
}

// gatedAPI blocks every listing until the test answers it, so responses can
// be delivered in any order.
type gatedAPI struct {
	fakeAPI
	calls chan *pendingCall
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{calls: make(chan *pendingCall)}
}

func (g *gatedAPI) GetUserTransactions(ctx context.Context, userID string, q client.TransactionQuery) (*models.TransactionPage, error) {
	call := &pendingCall{query: q, reply: make(chan pageResult, 1)}
	g.calls <- call
	res := <-call.reply
	return res.page, res.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	n.successes = append(n.successes, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	n.errors = append(n.errors, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errors)
}

type recordingRouter struct{ paths []string }

func (r *recordingRouter) Navigate(path string) { r.paths = append(r.paths, path) }

type recordingHeader struct{ title string }

func (h *recordingHeader) SetHeader(title string) { h.title = title }

type staticUser struct{ user *models.CurrentUser }

func (s staticUser) CurrentUser() *models.CurrentUser { return s.user }

func txn(typ models.TransactionType, amount, balanceAfter float64) *models.Transaction {
	return &models.Transaction{Type: typ, Amount: amount, BalanceAfter: balanceAfter}
}

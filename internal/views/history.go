package views

import (
	"context"
	"fmt"
	"sync"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"
	"ambulance-finance/pkg/logger"
)

type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateErrored LoadState = "errored"
)

// NavParams are the route parameters the admin history screen is opened with.
type NavParams struct {
	UserID   string
	UserType models.UserType
	UserName string
}

type HistoryFilters struct {
	Type      string
	StartDate string
	EndDate   string
}

type HistoryDeps struct {
	API        client.TransactionAPI
	Header     HeaderSetter
	Router     Router
	Notifier   Notifier
	Translator Translator
	Logger     *logger.Logger
}

// HistoryView is the admin's paginated, filterable list of one user's
// transactions.
type HistoryView struct {
	api        client.TransactionAPI
	header     HeaderSetter
	router     Router
	notifier   Notifier
	translator Translator
	logger     *logger.Logger
	pageSize   int

	seq requestSeq

	mu           sync.RWMutex
	params       NavParams
	filters      HistoryFilters
	page         int
	transactions []*models.Transaction
	total        int64
	loading      bool
	state        LoadState
	lastErr      error
}

func NewHistoryView(deps HistoryDeps, pageSize int) *HistoryView {
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	if deps.Translator == nil {
		deps.Translator = EnglishMessages
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	return &HistoryView{
		api:          deps.API,
		header:       deps.Header,
		router:       deps.Router,
		notifier:     deps.Notifier,
		translator:   deps.Translator,
		logger:       deps.Logger,
		pageSize:     pageSize,
		page:         1,
		transactions: []*models.Transaction{},
		state:        StateIdle,
	}
}

// Activate opens the screen for params and loads the first unfiltered page.
func (v *HistoryView) Activate(ctx context.Context, params NavParams) error {
	v.mu.Lock()
	v.params = params
	v.filters = HistoryFilters{}
	v.page = 1
	v.mu.Unlock()

	if v.header != nil {
		v.header.SetHeader("Transactions: " + params.UserName)
	}
	return v.load(ctx)
}

// SetFilters stores filter values without reloading.
func (v *HistoryView) SetFilters(filters HistoryFilters) {
	v.mu.Lock()
	v.filters = filters
	v.mu.Unlock()
}

func (v *HistoryView) ApplyFilters(ctx context.Context) error {
	v.mu.Lock()
	v.page = 1
	v.mu.Unlock()
	return v.load(ctx)
}

func (v *HistoryView) ResetFilters(ctx context.Context) error {
	v.mu.Lock()
	v.filters = HistoryFilters{}
	v.page = 1
	v.mu.Unlock()
	return v.load(ctx)
}

// OnPageChange loads page n, keeping the current filters.
func (v *HistoryView) OnPageChange(ctx context.Context, n int) error {
	v.mu.Lock()
	v.page = n
	v.mu.Unlock()
	return v.load(ctx)
}

func (v *HistoryView) GoBack() {
	v.mu.RLock()
	userType := v.params.UserType
	v.mu.RUnlock()

	if v.router != nil {
		v.router.Navigate(fmt.Sprintf("/admin/%ss", userType))
	}
}

func (v *HistoryView) ViewTrip(tripID string) {
	if v.router != nil && tripID != "" {
		v.router.Navigate("/admin/trips/" + tripID)
	}
}

func (v *HistoryView) load(ctx context.Context) error {
	token := v.seq.Next()

	v.mu.Lock()
	userID := v.params.UserID
	query := client.TransactionQuery{
		Page:      v.page,
		Limit:     v.pageSize,
		Type:      v.filters.Type,
		StartDate: v.filters.StartDate,
		EndDate:   v.filters.EndDate,
	}
	v.loading = true
	v.state = StateLoading
	v.mu.Unlock()

	page, err := v.api.GetUserTransactions(ctx, userID, query)

	v.mu.Lock()
	if !v.seq.IsLatest(token) {
		v.mu.Unlock()
		v.logger.WithField("page", query.Page).Debug("Dropping superseded transaction page")
		return nil
	}
	v.loading = false
	if err != nil {
		v.state = StateErrored
		v.lastErr = err
		v.mu.Unlock()

		v.logger.WithError(err).WithField("user_id", userID).Error("Failed to load transactions")
		if v.notifier != nil {
			v.notifier.Error(v.translator.T(MsgHistoryLoadFailed))
		}
		return err
	}
	v.transactions = page.Data
	v.total = page.Total
	v.state = StateLoaded
	v.lastErr = nil
	v.mu.Unlock()
	return nil
}

// Transactions returns the list currently on screen.
func (v *HistoryView) Transactions() []*models.Transaction {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]*models.Transaction(nil), v.transactions...)
}

func (v *HistoryView) Total() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.total
}

func (v *HistoryView) Page() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

func (v *HistoryView) PageSize() int {
	return v.pageSize
}

func (v *HistoryView) TotalPages() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return utils.TotalPages(v.total, v.pageSize)
}

func (v *HistoryView) Filters() HistoryFilters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filters
}

func (v *HistoryView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func (v *HistoryView) State() LoadState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Err is the failure of the last applied load, if any.
func (v *HistoryView) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

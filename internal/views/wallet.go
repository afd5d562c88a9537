package views

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"
	"ambulance-finance/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// AllTypes is the type filter value meaning "no type filter".
const AllTypes = "All"

const DefaultItemsPerPage = 10

var ErrInvalidWithdrawAmount = errors.New("withdraw amount must be greater than zero and not exceed the current balance")

type WalletDeps struct {
	API        client.TransactionAPI
	Users      UserProvider
	Notifier   Notifier
	Translator Translator
	Logger     *logger.Logger
	// Now defaults to time.Now; it seeds the month/year filter.
	Now func() time.Time
}

// WalletView is the signed-in user's own wallet: balance digest, a filtered
// and paginated payment list, and the withdrawal request form.
type WalletView struct {
	api        client.TransactionAPI
	users      UserProvider
	notifier   Notifier
	translator Translator
	logger     *logger.Logger

	latestSeq   requestSeq
	summarySeq  requestSeq
	paymentsSeq requestSeq

	mu            sync.RWMutex
	user          *models.CurrentUser
	latest        *models.Transaction
	collection    *models.CollectionSummary
	payments      []*models.Transaction
	totalItems    int64
	currentPage   int
	itemsPerPage  int
	selectedType  string
	selectedMonth time.Month
	selectedYear  int
	loading       bool
	withdrawOpen  bool
}

func NewWalletView(deps WalletDeps, itemsPerPage int) *WalletView {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	if deps.Translator == nil {
		deps.Translator = EnglishMessages
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	today := now()

	return &WalletView{
		api:           deps.API,
		users:         deps.Users,
		notifier:      deps.Notifier,
		translator:    deps.Translator,
		logger:        deps.Logger,
		payments:      []*models.Transaction{},
		currentPage:   1,
		itemsPerPage:  itemsPerPage,
		selectedType:  AllTypes,
		selectedMonth: today.Month(),
		selectedYear:  today.Year(),
	}
}

// Init resolves the current user and runs the three wallet loads in
// parallel. Without a signed-in user it does nothing. Each load applies its
// own result; the returned error is the first failure, if any.
func (v *WalletView) Init(ctx context.Context) error {
	if v.users == nil {
		return nil
	}
	user := v.users.CurrentUser()
	if user == nil || user.ID == "" {
		return nil
	}

	v.mu.Lock()
	v.user = user
	v.mu.Unlock()

	return v.loadAll(ctx)
}

// Refresh re-runs the three loads for the user resolved by Init.
func (v *WalletView) Refresh(ctx context.Context) error {
	if v.currentUser() == nil {
		return nil
	}
	return v.loadAll(ctx)
}

func (v *WalletView) loadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return v.loadLatest(ctx) })
	g.Go(func() error { return v.loadCollectionSummary(ctx) })
	g.Go(func() error { return v.loadPayments(ctx) })
	return g.Wait()
}

func (v *WalletView) loadLatest(ctx context.Context) error {
	user := v.currentUser()
	token := v.latestSeq.Next()

	page, err := v.api.GetUserTransactions(ctx, user.ID, client.TransactionQuery{Page: 1, Limit: 1})

	v.mu.Lock()
	if !v.latestSeq.IsLatest(token) {
		v.mu.Unlock()
		v.logger.Debug("Dropping superseded latest transaction")
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		v.loadFailed(err, "Failed to load latest transaction", MsgWalletLoadFailed)
		return err
	}
	v.latest = nil
	if len(page.Data) > 0 {
		v.latest = page.Data[0]
	}
	v.mu.Unlock()
	return nil
}

func (v *WalletView) loadCollectionSummary(ctx context.Context) error {
	user := v.currentUser()
	token := v.summarySeq.Next()

	summary, err := v.api.GetCollectionSummary(ctx, user.ID)

	v.mu.Lock()
	if !v.summarySeq.IsLatest(token) {
		v.mu.Unlock()
		v.logger.Debug("Dropping superseded collection summary")
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		v.loadFailed(err, "Failed to load collection summary", MsgWalletLoadFailed)
		return err
	}
	v.collection = summary
	v.mu.Unlock()
	return nil
}

func (v *WalletView) loadPayments(ctx context.Context) error {
	token := v.paymentsSeq.Next()

	v.mu.Lock()
	userID := v.user.ID
	startDate, endDate := utils.MonthRangeStrings(v.selectedYear, v.selectedMonth)
	query := client.TransactionQuery{
		Page:      v.currentPage,
		Limit:     v.itemsPerPage,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if v.selectedType != AllTypes {
		query.Type = v.selectedType
	}
	v.loading = true
	v.mu.Unlock()

	page, err := v.api.GetUserTransactions(ctx, userID, query)

	v.mu.Lock()
	if !v.paymentsSeq.IsLatest(token) {
		v.mu.Unlock()
		v.logger.WithField("page", query.Page).Debug("Dropping superseded payments page")
		return nil
	}
	v.loading = false
	if err != nil {
		v.mu.Unlock()
		v.loadFailed(err, "Failed to load payments", MsgPaymentsLoadFailed)
		return err
	}
	v.payments = page.Data
	v.totalItems = page.Total
	v.mu.Unlock()
	return nil
}

func (v *WalletView) loadFailed(err error, logMsg, key string) {
	v.logger.WithError(err).Error(logMsg)
	if v.notifier != nil {
		v.notifier.Error(v.translator.T(key))
	}
}

func (v *WalletView) currentUser() *models.CurrentUser {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.user
}

// SetTypeFilter selects a transaction type; AllTypes or "" clears it.
func (v *WalletView) SetTypeFilter(transactionType string) {
	if transactionType == "" {
		transactionType = AllTypes
	}
	v.mu.Lock()
	v.selectedType = transactionType
	v.mu.Unlock()
}

func (v *WalletView) SetPeriod(month time.Month, year int) {
	v.mu.Lock()
	v.selectedMonth = month
	v.selectedYear = year
	v.mu.Unlock()
}

// ApplyFilters goes back to page 1 and reloads the payment list.
func (v *WalletView) ApplyFilters(ctx context.Context) error {
	if v.currentUser() == nil {
		return nil
	}
	v.mu.Lock()
	v.currentPage = 1
	v.mu.Unlock()
	return v.loadPayments(ctx)
}

func (v *WalletView) NextPage(ctx context.Context) error {
	v.mu.Lock()
	if v.user == nil || v.currentPage >= utils.TotalPages(v.totalItems, v.itemsPerPage) {
		v.mu.Unlock()
		return nil
	}
	v.currentPage++
	v.mu.Unlock()
	return v.loadPayments(ctx)
}

func (v *WalletView) PreviousPage(ctx context.Context) error {
	v.mu.Lock()
	if v.user == nil || v.currentPage <= 1 {
		v.mu.Unlock()
		return nil
	}
	v.currentPage--
	v.mu.Unlock()
	return v.loadPayments(ctx)
}

// GoToPage loads page n. n is not checked against TotalPages.
func (v *WalletView) GoToPage(ctx context.Context, n int) error {
	v.mu.Lock()
	if v.user == nil {
		v.mu.Unlock()
		return nil
	}
	v.currentPage = n
	v.mu.Unlock()
	return v.loadPayments(ctx)
}

func (v *WalletView) TotalPages() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return utils.TotalPages(v.totalItems, v.itemsPerPage)
}

// DateRange is the selected month as YYYY-MM-DD bounds, both inclusive.
func (v *WalletView) DateRange() (string, string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return utils.MonthRangeStrings(v.selectedYear, v.selectedMonth)
}

// Summary derives the wallet digest from the latest loaded data.
func (v *WalletView) Summary() models.WalletSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return models.BuildWalletSummary(v.latest, v.collection, v.payments)
}

func (v *WalletView) OpenWithdrawModal() {
	v.mu.Lock()
	v.withdrawOpen = true
	v.mu.Unlock()
}

func (v *WalletView) CloseWithdrawModal() {
	v.mu.Lock()
	v.withdrawOpen = false
	v.mu.Unlock()
}

// SubmitWithdraw accepts 0 < amount <= current balance, closes the modal
// and raises one success notice. Nothing is sent to the server.
func (v *WalletView) SubmitWithdraw(amount float64) error {
	v.mu.Lock()
	balance := 0.0
	if v.latest != nil {
		balance = v.latest.BalanceAfter
	}
	if math.IsNaN(amount) || amount <= 0 || amount > balance {
		v.mu.Unlock()
		return ErrInvalidWithdrawAmount
	}
	v.withdrawOpen = false
	v.mu.Unlock()

	if v.notifier != nil {
		v.notifier.Success(v.translator.T(MsgWithdrawRequested))
	}
	return nil
}

func (v *WalletView) WithdrawModalOpen() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.withdrawOpen
}

func (v *WalletView) Payments() []*models.Transaction {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]*models.Transaction(nil), v.payments...)
}

func (v *WalletView) CurrentPage() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.currentPage
}

func (v *WalletView) TotalItems() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalItems
}

func (v *WalletView) ItemsPerPage() int {
	return v.itemsPerPage
}

func (v *WalletView) SelectedType() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selectedType
}

func (v *WalletView) Period() (time.Month, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selectedMonth, v.selectedYear
}

func (v *WalletView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func (v *WalletView) User() *models.CurrentUser {
	return v.currentUser()
}

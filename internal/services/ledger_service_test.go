package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/repositories/interfaces"
	"ambulance-finance/internal/repositories/memory"
	"ambulance-finance/internal/utils"
	"ambulance-finance/pkg/cache"
	"ambulance-finance/pkg/logger"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type publishedEvent struct {
	userID        primitive.ObjectID
	event         string
	transactionID primitive.ObjectID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishWalletChange(ctx context.Context, userID primitive.ObjectID, event string, transactionID primitive.ObjectID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID, event, transactionID})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type countingRepo struct {
	interfaces.TransactionRepository
	summaryCalls int
}

func (r *countingRepo) GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error) {
	r.summaryCalls++
	return r.TransactionRepository.GetCollectionSummary(ctx, userID)
}

type fixture struct {
	service   *ledgerService
	repo      *countingRepo
	cache     *cache.MemoryCache
	publisher *recordingPublisher
	admin     *models.Actor
}

func newFixture() *fixture {
	repo := &countingRepo{TransactionRepository: memory.NewTransactionRepository()}
	c := cache.NewMemoryCache()
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, c, pub, logger.NewNop(), time.Minute).(*ledgerService)
	return &fixture{
		service:   svc,
		repo:      repo,
		cache:     c,
		publisher: pub,
		admin:     &models.Actor{ID: primitive.NewObjectID(), Name: "Dispatch Admin"},
	}
}

func (f *fixture) entry(t *testing.T, userID primitive.ObjectID, typ models.TransactionType, amount float64) *models.Transaction {
	t.Helper()
	txn, err := f.service.RecordEntry(context.Background(), userID, &models.EntryRequest{
		UserType: models.UserTypeDriver,
		Type:     typ,
		Amount:   amount,
	}, f.admin)
	if err != nil {
		t.Fatalf("RecordEntry(%s, %v) error = %v", typ, amount, err)
	}
	return txn
}

func TestBalanceChaining(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()

	first := f.entry(t, user, models.TransactionTypeTripEarning, 120.10)
	second := f.entry(t, user, models.TransactionTypeFuelExpense, -20.05)

	payment, err := f.service.ProcessPayment(ctx, user, "", &models.PaymentRequest{Amount: 50}, f.admin)
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}

	if first.BalanceBefore != 0 || first.BalanceAfter != 120.10 {
		t.Errorf("first balances = %v -> %v", first.BalanceBefore, first.BalanceAfter)
	}
	if second.BalanceBefore != 120.10 || second.BalanceAfter != 100.05 {
		t.Errorf("second balances = %v -> %v", second.BalanceBefore, second.BalanceAfter)
	}
	if payment.Amount != -50 || payment.Type != models.TransactionTypePayment {
		t.Errorf("payment = %v %s, want -50 payment", payment.Amount, payment.Type)
	}
	if payment.BalanceAfter != 50.05 || payment.UserType != models.UserTypeDriver {
		t.Errorf("payment balanceAfter = %v, userType = %s", payment.BalanceAfter, payment.UserType)
	}
	if payment.CollectionStatus != models.CollectionStatusNotApplicable {
		t.Errorf("payment collectionStatus = %s, want n/a", payment.CollectionStatus)
	}

	page, err := f.service.ListTransactions(ctx, user, nil, utils.NewPaginationParams(1, 1))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if page.Total != 3 || len(page.Data) != 1 || page.Data[0].ID != payment.ID {
		t.Errorf("latest = %+v, total %d; want the payment", page.Data, page.Total)
	}
}

func TestProcessPaymentRejectsNonPositive(t *testing.T) {
	f := newFixture()
	for _, amount := range []float64{0, -10} {
		_, err := f.service.ProcessPayment(context.Background(), primitive.NewObjectID(), models.UserTypeParamedic, &models.PaymentRequest{Amount: amount}, f.admin)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ProcessPayment(%v) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func assertChained(t *testing.T, txn *models.Transaction) {
	t.Helper()
	want := decimal.NewFromFloat(txn.BalanceBefore).Add(decimal.NewFromFloat(txn.Amount))
	if !want.Equal(decimal.NewFromFloat(txn.BalanceAfter)) {
		t.Errorf("%s: balanceAfter %v != balanceBefore %v + amount %v", txn.Type, txn.BalanceAfter, txn.BalanceBefore, txn.Amount)
	}
}

func TestSubCentAmountsAreRoundedBeforeChaining(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()

	original := f.entry(t, user, models.TransactionTypeTripEarning, 20.004)
	if original.Amount != 20 || original.BalanceAfter != 20 {
		t.Errorf("trip earning = %v -> %v, want 20 -> 20", original.Amount, original.BalanceAfter)
	}
	assertChained(t, original)

	adj, err := f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: original.ID.Hex(),
		AdjustmentAmount:      10.005,
		AdjustmentReason:      "fare correction",
	}, f.admin)
	if err != nil {
		t.Fatalf("CreateAdjustment() error = %v", err)
	}
	if adj.Amount != 10.01 || adj.BalanceBefore != 20 || adj.BalanceAfter != 30.01 {
		t.Errorf("adjustment = %v, %v -> %v; want 10.01, 20 -> 30.01", adj.Amount, adj.BalanceBefore, adj.BalanceAfter)
	}
	assertChained(t, adj)

	payment, err := f.service.ProcessPayment(ctx, user, "", &models.PaymentRequest{Amount: 0.016}, f.admin)
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if payment.Amount != -0.02 || payment.BalanceAfter != 29.99 {
		t.Errorf("payment = %v -> %v, want -0.02 -> 29.99", payment.Amount, payment.BalanceAfter)
	}
	assertChained(t, payment)
}

func TestAmountsRoundingToZeroAreRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()

	_, err := f.service.RecordEntry(ctx, user, &models.EntryRequest{
		UserType: models.UserTypeDriver,
		Type:     models.TransactionTypeBonus,
		Amount:   0.004,
	}, f.admin)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("RecordEntry(0.004) error = %v, want ErrInvalidAmount", err)
	}

	_, err = f.service.ProcessPayment(ctx, user, models.UserTypeDriver, &models.PaymentRequest{Amount: 0.001}, f.admin)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("ProcessPayment(0.001) error = %v, want ErrInvalidAmount", err)
	}

	original := f.entry(t, user, models.TransactionTypeTripEarning, 50)
	_, err = f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: original.ID.Hex(),
		AdjustmentAmount:      -0.003,
		AdjustmentReason:      "rounding",
	}, f.admin)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("CreateAdjustment(-0.003) error = %v, want ErrInvalidAmount", err)
	}

	page, err := f.service.ListTransactions(ctx, user, nil, utils.NewPaginationParams(1, 10))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if page.Total != 1 {
		t.Errorf("stored %d transactions, want only the trip earning", page.Total)
	}
}

func TestRecordEntryRejectsDedicatedTypes(t *testing.T) {
	f := newFixture()
	_, err := f.service.RecordEntry(context.Background(), primitive.NewObjectID(), &models.EntryRequest{
		UserType: models.UserTypeDriver,
		Type:     models.TransactionTypeAdjustment,
		Amount:   5,
	}, f.admin)
	if !errors.Is(err, ErrUnsupportedEntryType) {
		t.Errorf("RecordEntry(adjustment) error = %v, want ErrUnsupportedEntryType", err)
	}
}

func TestCreateAdjustmentAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()
	original := f.entry(t, user, models.TransactionTypeTripEarning, 100)

	adj, err := f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: original.ID.Hex(),
		AdjustmentAmount:      -15.5,
		AdjustmentReason:      "toll overcharge",
	}, f.admin)
	if err != nil {
		t.Fatalf("CreateAdjustment() error = %v", err)
	}
	if !adj.IsAdjustment || adj.RelatedTransactionID == nil || *adj.RelatedTransactionID != original.ID {
		t.Errorf("adjustment linkage = %+v", adj)
	}
	if adj.CreatedByName != "Dispatch Admin" || adj.UserID != user || adj.BalanceAfter != 84.5 {
		t.Errorf("adjustment = %+v", adj)
	}

	if _, err := f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: original.ID.Hex(),
		AdjustmentAmount:      5,
		AdjustmentReason:      "partial refund",
	}, f.admin); err != nil {
		t.Fatalf("CreateAdjustment() error = %v", err)
	}

	history, err := f.service.GetAdjustmentHistory(ctx, original.ID)
	if err != nil {
		t.Fatalf("GetAdjustmentHistory() error = %v", err)
	}
	if history.AdjustmentCount != 2 || history.NetAmount != 89.5 || history.OriginalTransaction.ID != original.ID {
		t.Errorf("history = count %d net %v", history.AdjustmentCount, history.NetAmount)
	}

	_, err = f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: adj.ID.Hex(),
		AdjustmentAmount:      1,
		AdjustmentReason:      "nested",
	}, f.admin)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Errorf("adjusting an adjustment error = %v, want ErrInvalidAdjustment", err)
	}

	_, err = f.service.CreateAdjustment(ctx, &models.AdjustmentRequest{
		OriginalTransactionID: primitive.NewObjectID().Hex(),
		AdjustmentAmount:      1,
		AdjustmentReason:      "missing",
	}, f.admin)
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("adjusting a missing transaction error = %v, want ErrTransactionNotFound", err)
	}
}

func TestMarkAsCollectedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()
	collection := f.entry(t, user, models.TransactionTypeTripCollection, -80)
	if collection.CollectionStatus != models.CollectionStatusPending {
		t.Fatalf("new collection status = %s, want pending", collection.CollectionStatus)
	}

	summary, err := f.service.GetCollectionSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetCollectionSummary() error = %v", err)
	}
	if summary.PendingAmount != 80 || summary.PendingCount != 1 {
		t.Errorf("summary before collect = %+v", summary)
	}
	if _, err := f.service.GetCollectionSummary(ctx, user); err != nil {
		t.Fatalf("GetCollectionSummary() error = %v", err)
	}
	if f.repo.summaryCalls != 1 {
		t.Errorf("repository summary calls = %d, want 1 (second read cached)", f.repo.summaryCalls)
	}

	eventsBefore := f.publisher.count()
	req := &models.CollectRequest{CollectionNotes: "handed to shift lead", ReceiptURL: "https://cdn.example.com/r.png"}
	collected, err := f.service.MarkAsCollected(ctx, collection.ID, req, f.admin)
	if err != nil {
		t.Fatalf("MarkAsCollected() error = %v", err)
	}
	if collected.CollectionStatus != models.CollectionStatusCollected || collected.CollectedBy == nil || *collected.CollectedBy != f.admin.ID {
		t.Errorf("collected = %+v", collected)
	}
	if collected.BalanceAfter != collection.BalanceAfter {
		t.Errorf("collect changed balance: %v -> %v", collection.BalanceAfter, collected.BalanceAfter)
	}

	again, err := f.service.MarkAsCollected(ctx, collection.ID, &models.CollectRequest{CollectionNotes: "dup"}, f.admin)
	if err != nil {
		t.Fatalf("second MarkAsCollected() error = %v", err)
	}
	if again.CollectionNotes != "handed to shift lead" || !again.CollectedAt.Equal(*collected.CollectedAt) {
		t.Errorf("second collect mutated entry: %+v", again)
	}
	if got := f.publisher.count() - eventsBefore; got != 1 {
		t.Errorf("published %d events for two collects, want 1", got)
	}

	summary, err = f.service.GetCollectionSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetCollectionSummary() error = %v", err)
	}
	if summary.PendingCount != 0 || summary.CollectedAmount != 80 || summary.CollectedCount != 1 {
		t.Errorf("summary after collect = %+v (cache not invalidated?)", summary)
	}
}

func TestMarkAsCollectedErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	earning := f.entry(t, primitive.NewObjectID(), models.TransactionTypeTripEarning, 10)

	if _, err := f.service.MarkAsCollected(ctx, earning.ID, &models.CollectRequest{}, f.admin); !errors.Is(err, ErrNotCollectible) {
		t.Errorf("collect earning error = %v, want ErrNotCollectible", err)
	}
	if _, err := f.service.MarkAsCollected(ctx, primitive.NewObjectID(), &models.CollectRequest{}, f.admin); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("collect missing error = %v, want ErrTransactionNotFound", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()
	f.entry(t, user, models.TransactionTypeTripEarning, 10)
	f.entry(t, user, models.TransactionTypeBonus, 5)

	today := utils.FormatDate(time.Now().UTC())
	page, err := f.service.ListTransactions(ctx, user, &models.TransactionFilter{
		Type:      string(models.TransactionTypeBonus),
		StartDate: today,
		EndDate:   today,
	}, utils.NewPaginationParams(1, 10))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if page.Total != 1 || page.Data[0].Type != models.TransactionTypeBonus {
		t.Errorf("filtered page = %+v", page)
	}

	if _, err := f.service.ListTransactions(ctx, user, &models.TransactionFilter{Type: "Bonus"}, utils.NewPaginationParams(1, 10)); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("ListTransactions(label as type) error = %v, want ErrInvalidFilter", err)
	}
}

func TestConcurrentPostingsChainWithoutGaps(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.RecordEntry(ctx, user, &models.EntryRequest{
				UserType: models.UserTypeDriver,
				Type:     models.TransactionTypeTripEarning,
				Amount:   1.25,
			}, f.admin); err != nil {
				t.Errorf("RecordEntry() error = %v", err)
			}
		}()
	}
	wg.Wait()

	page, err := f.service.ListTransactions(ctx, user, nil, utils.NewPaginationParams(1, 100))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if page.Data[0].BalanceAfter != 25 {
		t.Errorf("final balance = %v, want 25", page.Data[0].BalanceAfter)
	}
	for i := 0; i < len(page.Data)-1; i++ {
		if page.Data[i].BalanceBefore != page.Data[i+1].BalanceAfter {
			t.Fatalf("chain broken at %d: %v != %v", i, page.Data[i].BalanceBefore, page.Data[i+1].BalanceAfter)
		}
	}
}

// slowSummaryRepo holds a summary read after it has hit the store, and
// reports when MarkCollected has written.
type slowSummaryRepo struct {
	interfaces.TransactionRepository
	read    chan struct{}
	release chan struct{}
	marked  chan struct{}
}

func (r *slowSummaryRepo) GetCollectionSummary(ctx context.Context, userID primitive.ObjectID) (*models.CollectionSummary, error) {
	summary, err := r.TransactionRepository.GetCollectionSummary(ctx, userID)
	if r.read != nil {
		close(r.read)
		r.read = nil
		<-r.release
	}
	return summary, err
}

func (r *slowSummaryRepo) MarkCollected(ctx context.Context, id primitive.ObjectID, update *models.CollectionUpdate) (bool, error) {
	ok, err := r.TransactionRepository.MarkCollected(ctx, id, update)
	close(r.marked)
	return ok, err
}

func TestSummaryFillRacingCollectIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := &slowSummaryRepo{
		TransactionRepository: memory.NewTransactionRepository(),
		read:                  make(chan struct{}),
		release:               make(chan struct{}),
		marked:                make(chan struct{}),
	}
	svc := NewLedgerService(repo, cache.NewMemoryCache(), nil, logger.NewNop(), time.Minute)
	user := primitive.NewObjectID()

	collection, err := svc.RecordEntry(ctx, user, &models.EntryRequest{
		UserType: models.UserTypeDriver,
		Type:     models.TransactionTypeTripCollection,
		Amount:   -45,
	}, nil)
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}

	read := repo.read
	fillDone := make(chan error, 1)
	go func() {
		_, err := svc.GetCollectionSummary(ctx, user)
		fillDone <- err
	}()
	<-read

	collectDone := make(chan error, 1)
	go func() {
		_, err := svc.MarkAsCollected(ctx, collection.ID, &models.CollectRequest{}, nil)
		collectDone <- err
	}()
	<-repo.marked
	close(repo.release)

	for _, ch := range []chan error{fillDone, collectDone} {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("concurrent call error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("concurrent call did not finish")
		}
	}

	summary, err := svc.GetCollectionSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetCollectionSummary() error = %v", err)
	}
	if summary.PendingCount != 0 || summary.CollectedCount != 1 {
		t.Errorf("summary after collect = %+v, want the stale fill discarded", summary)
	}
}

func TestPostingLogsTransactionID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	log, err := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)
	f.service.logger = log

	user := primitive.NewObjectID()
	collection := f.entry(t, user, models.TransactionTypeTripCollection, -30)
	if !strings.Contains(buf.String(), `"transaction_id":"`+collection.ID.Hex()+`"`) {
		t.Errorf("posting log lacks transaction_id:\n%s", buf.String())
	}

	for i := 0; i < 2; i++ {
		if _, err := f.service.MarkAsCollected(ctx, collection.ID, &models.CollectRequest{}, f.admin); err != nil {
			t.Fatalf("MarkAsCollected() error = %v", err)
		}
	}
	if !strings.Contains(buf.String(), "Transaction already collected") {
		t.Errorf("repeat collect not logged:\n%s", buf.String())
	}
}

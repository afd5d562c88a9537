package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/config"
	"ambulance-finance/internal/handlers"
	"ambulance-finance/internal/models"
	"ambulance-finance/internal/repositories/memory"
	"ambulance-finance/internal/services"
	"ambulance-finance/pkg/cache"
	"ambulance-finance/pkg/logger"
	"ambulance-finance/routes"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type harness struct {
	cli     *cli
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	service services.LedgerService
}

func newHarness(t *testing.T, user *models.CurrentUser) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	service := services.NewLedgerService(memory.NewTransactionRepository(), cache.NewMemoryCache(), nil, log, time.Minute)
	router := gin.New()
	routes.SetupTransactionRoutes(router.Group("/api/v1"), handlers.NewTransactionHandler(service, log))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	api, err := client.NewTransactionClient(client.Config{BaseURL: server.URL + "/api/v1", Timeout: 2 * time.Second}, log)
	if err != nil {
		t.Fatalf("NewTransactionClient() error = %v", err)
	}

	t.Setenv("NO_COLOR", "1")
	cfg, err := config.Load("testdata/does-not-exist.env")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, service: service}
	h.cli = &cli{api: api, cfg: cfg, logger: log, out: h.out, errOut: h.errOut}
	if user != nil {
		h.cli.users = client.StaticUserProvider{User: user}
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) int {
	t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	return h.cli.run(context.Background(), args)
}

func TestCLIAdminFlow(t *testing.T) {
	h := newHarness(t, nil)
	user := primitive.NewObjectID().Hex()

	if code := h.run(t, "record", user, "-type", "trip_earning", "-amount", "150", "-description", "Transfer to City Hospital"); code != 0 {
		t.Fatalf("record exit = %d, stderr = %s", code, h.errOut)
	}
	if code := h.run(t, "pay", user, "-amount", "40", "-description", "weekly payout"); code != 0 {
		t.Fatalf("pay exit = %d, stderr = %s", code, h.errOut)
	}

	if code := h.run(t, "history", user, "-name", "Jane Doe"); code != 0 {
		t.Fatalf("history exit = %d, stderr = %s", code, h.errOut)
	}
	out := h.out.String()
	for _, want := range []string{"== Transactions: Jane Doe ==", "Trip earning", "Payment", "$110.00", "Page 1 of 1 (2 transactions)"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}

	if code := h.run(t, "history", user, "-type", "payment", "-back"); code != 0 {
		t.Fatalf("filtered history exit = %d", code)
	}
	if out := h.out.String(); strings.Contains(out, "Trip earning") || !strings.Contains(out, "-> /admin/drivers") {
		t.Errorf("filtered history output:\n%s", out)
	}

	if code := h.run(t, "summary", user); code != 0 || !strings.Contains(h.out.String(), "Pending") {
		t.Errorf("summary exit = %d output:\n%s", code, h.out)
	}
}

func TestCLIWalletAndWithdraw(t *testing.T) {
	userID := primitive.NewObjectID()
	h := newHarness(t, &models.CurrentUser{ID: userID.Hex(), Name: "Sam Rivera", UserType: models.UserTypeParamedic})

	_, err := h.service.RecordEntry(context.Background(), userID, &models.EntryRequest{
		UserType: models.UserTypeParamedic,
		Type:     models.TransactionTypeBonus,
		Amount:   80,
	}, nil)
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}

	if code := h.run(t, "wallet"); code != 0 {
		t.Fatalf("wallet exit = %d, stderr = %s", code, h.errOut)
	}
	if out := h.out.String(); !strings.Contains(out, "== Wallet: Sam Rivera ==") || !strings.Contains(out, "$80.00") {
		t.Errorf("wallet output:\n%s", out)
	}

	if code := h.run(t, "withdraw", "-amount", "81"); code != 1 {
		t.Errorf("withdraw above balance exit = %d, want 1", code)
	}
	if code := h.run(t, "withdraw", "-amount", "80"); code != 0 || !strings.Contains(h.errOut.String(), "Withdrawal request submitted") {
		t.Errorf("withdraw exit = %d stderr = %s", code, h.errOut)
	}
}

func TestCLIErrors(t *testing.T) {
	h := newHarness(t, nil)

	if code := h.run(t); code != 2 {
		t.Errorf("no command exit = %d, want 2", code)
	}
	if code := h.run(t, "launch"); code != 2 {
		t.Errorf("unknown command exit = %d, want 2", code)
	}
	if code := h.run(t, "pay"); code != 2 {
		t.Errorf("missing argument exit = %d, want 2", code)
	}
	if code := h.run(t, "wallet"); code != 1 || !strings.Contains(h.errOut.String(), "not signed in") {
		t.Errorf("wallet without user exit = %d stderr = %s", code, h.errOut)
	}

	code := h.run(t, "adjustments", primitive.NewObjectID().Hex())
	if code != 1 || !strings.Contains(h.errOut.String(), "404") {
		t.Errorf("unknown transaction exit = %d stderr = %s", code, h.errOut)
	}
}

func TestCLIToken(t *testing.T) {
	h := newHarness(t, nil)
	userID := primitive.NewObjectID().Hex()

	h.cli.cfg.Security.JWTSecret = ""
	if code := h.run(t, "token", userID); code != 1 || !strings.Contains(h.errOut.String(), "JWT_SECRET") {
		t.Errorf("token without secret exit = %d stderr = %s", code, h.errOut)
	}

	h.cli.cfg.Security.JWTSecret = "s3cret"
	if code := h.run(t, "token", "not-an-id"); code != 1 {
		t.Errorf("token with bad ID exit = %d, want 1", code)
	}

	if code := h.run(t, "token", userID, "-user-type", "paramedic", "-name", "Sam Rivera"); code != 0 {
		t.Fatalf("token exit = %d stderr = %s", code, h.errOut)
	}
	provider, err := client.NewTokenUserProvider(strings.TrimSpace(h.out.String()))
	if err != nil {
		t.Fatalf("NewTokenUserProvider() error = %v", err)
	}
	user := provider.CurrentUser()
	if user == nil || user.ID != userID || user.Name != "Sam Rivera" || user.UserType != models.UserTypeParamedic {
		t.Errorf("CurrentUser() = %+v", user)
	}
}

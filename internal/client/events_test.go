package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"ambulance-finance/pkg/logger"
	"ambulance-finance/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWatchWalletReceivesChangeNotices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.NewNop()
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/api/v1/live/wallet/:userId", websocket.NewHandler(hub, websocket.Config{}, log).HandleWalletSocket)
	server := httptest.NewServer(router)
	defer server.Close()

	c, err := NewTransactionClient(Config{BaseURL: server.URL + "/api/v1", SocketPath: "/live"}, log)
	if err != nil {
		t.Fatalf("NewTransactionClient() error = %v", err)
	}

	userID := primitive.NewObjectID()
	txnID := primitive.NewObjectID()
	received := make(chan websocket.Message, 1)
	watchCtx, stopWatching := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- c.WatchWallet(watchCtx, userID.Hex(), func(msg websocket.Message) {
			received <- msg
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedClients(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the wallet room")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.PublishWalletChange(ctx, userID, "payment_processed", txnID); err != nil {
		t.Fatalf("PublishWalletChange() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg.Type != websocket.MessageTypeTransactionsChanged || msg.UserID != userID {
			t.Errorf("message = %+v", msg)
		}
		if msg.TransactionID == nil || *msg.TransactionID != txnID {
			t.Errorf("TransactionID = %v, want %v", msg.TransactionID, txnID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transactions_changed notice received")
	}

	stopWatching()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WatchWallet() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WatchWallet did not return after cancel")
	}
}

func TestWalletSocketURL(t *testing.T) {
	tests := []struct {
		base       string
		socketPath string
		want       string
	}{
		{"http://localhost:8080/api/v1", "", "ws://localhost:8080/api/v1/ws/wallet/u1"},
		{"https://ledger.example.com/api/v1/", "", "wss://ledger.example.com/api/v1/ws/wallet/u1"},
		{"http://localhost:8080/api/v1", "/live/", "ws://localhost:8080/api/v1/live/wallet/u1"},
		{"http://localhost:8080/api/v1", "events", "ws://localhost:8080/api/v1/events/wallet/u1"},
	}
	for _, tt := range tests {
		c, err := NewTransactionClient(Config{BaseURL: tt.base, SocketPath: tt.socketPath}, nil)
		if err != nil {
			t.Fatalf("NewTransactionClient(%q) error = %v", tt.base, err)
		}
		got, err := c.walletSocketURL("u1")
		if err != nil || got != tt.want {
			t.Errorf("walletSocketURL() = %q, %v; want %q", got, err, tt.want)
		}
	}
}

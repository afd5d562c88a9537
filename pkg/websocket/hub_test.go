package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ambulance-finance/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logger.NewNop()
	hub := NewHub(log)
	go hub.Run(ctx)

	handler := NewHandler(hub, Config{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: time.Second,
		PongTimeout:      5 * time.Second,
		AllowedOrigins:   []string{"*"},
	}, log)

	router := gin.New()
	router.GET("/ws/wallet/:userId", handler.HandleWalletSocket)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return msg
}

func TestHubDeliversWalletChangeToUserRoom(t *testing.T) {
	hub, baseURL := newTestServer(t)
	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()

	conn, _, err := websocket.DefaultDialer.Dial(baseURL+"/ws/wallet/"+userID.Hex(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != MessageTypeConnected {
		t.Fatalf("first message type = %q, want %q", msg.Type, MessageTypeConnected)
	}

	txnID := primitive.NewObjectID()
	if err := hub.PublishWalletChange(context.Background(), otherID, "payment_processed", primitive.NewObjectID()); err != nil {
		t.Fatalf("PublishWalletChange(other) error = %v", err)
	}
	if err := hub.PublishWalletChange(context.Background(), userID, "payment_processed", txnID); err != nil {
		t.Fatalf("PublishWalletChange() error = %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeTransactionsChanged || msg.UserID != userID {
		t.Fatalf("notice = %+v", msg)
	}
	if msg.TransactionID == nil || *msg.TransactionID != txnID || msg.Event != "payment_processed" {
		t.Errorf("notice payload = %+v", msg)
	}
}

func TestHubAnswersPing(t *testing.T) {
	_, baseURL := newTestServer(t)
	userID := primitive.NewObjectID()

	conn, _, err := websocket.DefaultDialer.Dial(baseURL+"/ws/wallet/"+userID.Hex(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	readMessage(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("reply type = %q, want %q", msg.Type, MessageTypePong)
	}
}

func TestHandlerRejectsInvalidUserID(t *testing.T) {
	_, baseURL := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(baseURL+"/ws/wallet/not-an-id", nil)
	if err == nil {
		t.Fatal("Dial() succeeded for invalid user id")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("response = %v, want 400", resp)
	}
}

func TestDeliverDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(logger.NewNop())
	userID := primitive.NewObjectID()

	for i := 0; i < cap(hub.broadcast); i++ {
		if err := hub.Deliver(NewWalletChange(userID, "transaction_created", primitive.NilObjectID)); err != nil {
			t.Fatalf("Deliver() #%d error = %v", i, err)
		}
	}
	if err := hub.Deliver(NewWalletChange(userID, "transaction_created", primitive.NilObjectID)); err != ErrHubBusy {
		t.Errorf("Deliver() on full queue error = %v, want ErrHubBusy", err)
	}
}

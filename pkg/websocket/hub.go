package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"ambulance-finance/pkg/logger"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeConnected           = "connected"
	MessageTypeTransactionsChanged = "transactions_changed"
	MessageTypePing                = "ping"
	MessageTypePong                = "pong"
)

// ErrHubBusy is returned when the broadcast queue is full and a notice is dropped.
var ErrHubBusy = errors.New("websocket: hub broadcast queue is full")

// Message is the frame pushed to wallet subscribers.
type Message struct {
	Type          string              `json:"type"`
	UserID        primitive.ObjectID  `json:"userId"`
	Event         string              `json:"event,omitempty"`
	TransactionID *primitive.ObjectID `json:"transactionId,omitempty"`
	Timestamp     int64               `json:"timestamp"`
}

// Hub fans wallet change notices out to every connection of the affected user.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.sendToRoom(walletRoom(message.UserID), message)
		}
	}
}

// PublishWalletChange queues a transactions_changed notice for userID.
func (h *Hub) PublishWalletChange(ctx context.Context, userID primitive.ObjectID, event string, transactionID primitive.ObjectID) error {
	return h.Deliver(NewWalletChange(userID, event, transactionID))
}

// Deliver queues message without blocking.
func (h *Hub) Deliver(message *Message) error {
	select {
	case h.broadcast <- message:
		return nil
	default:
		h.logger.WithUserID(message.UserID).Warn("Dropping wallet notice, hub is busy")
		return ErrHubBusy
	}
}

// ConnectedClients reports how many connections userID currently holds.
func (h *Hub) ConnectedClients(userID primitive.ObjectID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[walletRoom(userID)])
}

func NewWalletChange(userID primitive.ObjectID, event string, transactionID primitive.ObjectID) *Message {
	msg := &Message{
		Type:      MessageTypeTransactionsChanged,
		UserID:    userID,
		Event:     event,
		Timestamp: getCurrentTimestamp(),
	}
	if !transactionID.IsZero() {
		msg.TransactionID = &transactionID
	}
	return msg
}

// Register hands a new connection to the hub; it reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	room := walletRoom(client.UserID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	h.mutex.Unlock()

	h.logger.WithUserID(client.UserID).Debug("Wallet subscriber registered")

	h.sendToClient(client, &Message{
		Type:      MessageTypeConnected,
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.removeClient(client) {
		h.logger.WithUserID(client.UserID).Debug("Wallet subscriber unregistered")
	}
}

// removeClient must be called with the write lock held.
func (h *Hub) removeClient(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.send)

	room := walletRoom(client.UserID)
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	return true
}

func (h *Hub) sendToRoom(roomID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode wallet notice")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			// Slow consumer; it reconnects and re-fetches.
			h.removeClient(client)
		}
	}
}

func (h *Hub) sendToClient(client *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.removeClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.removeClient(client)
	}
}

func walletRoom(userID primitive.ObjectID) string {
	return "wallet_" + userID.Hex()
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}

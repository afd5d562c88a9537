package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ambulance-finance/pkg/websocket"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"
)

// WalletEventHandler receives every transactions_changed notice.
type WalletEventHandler func(msg websocket.Message)

// WatchWallet subscribes to userID's change notices and calls handler for each
// until ctx is cancelled or the connection drops. It never reconnects.
func (c *TransactionClient) WatchWallet(ctx context.Context, userID string, handler WalletEventHandler) error {
	wsURL, err := c.walletSocketURL(userID)
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("client: dial wallet events: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("client: wallet events: %w", err)
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Ignoring malformed wallet notice")
			continue
		}
		if msg.Type == websocket.MessageTypeTransactionsChanged {
			handler(msg)
		}
	}
}

func (c *TransactionClient) walletSocketURL(userID string) (string, error) {
	u, err := url.Parse(c.baseURL.String() + c.socketPath + "/wallet/" + url.PathEscape(userID))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("client: unsupported scheme %q for wallet events", u.Scheme)
	}
	return u.String(), nil
}

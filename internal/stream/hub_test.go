package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return hub, wsURL, cancel
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsSummaryToAllClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t)
	defer cancel()

	first := dial(t, wsURL)
	second := dial(t, wsURL)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	hub.BroadcastSummary(portfolio.Summary{TotalValue: decimal.NewFromInt(1234)})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypePortfolioSummary, msg.Type)

		payload, ok := msg.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "1234", payload["total_value"])
	}
}

func TestHubUnregistersDisconnectedClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t)
	defer cancel()

	leaver := dial(t, wsURL)
	stayer := dial(t, wsURL)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	leaver.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.BroadcastPositionUpdated("AAPL")
	msg := readMessage(t, stayer)
	assert.Equal(t, MessageTypePositionUpdated, msg.Type)
}

// TestBroadcastDuringPings drives the ping loop at a fast interval
// while the hub broadcasts continuously to the same connection. Pings
// are control frames written concurrently with the broadcast data
// frames, so every broadcast must still arrive intact.
func TestBroadcastDuringPings(t *testing.T) {
	hub, wsURL, cancel := startHub(t)
	defer cancel()

	conn := dial(t, wsURL)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.mu.RLock()
	var serverConn *websocket.Conn
	for c := range hub.clients {
		serverConn = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, serverConn)

	go hub.pingLoop(serverConn, time.Millisecond)

	const sends = 50
	go func() {
		for i := 0; i < sends; i++ {
			hub.BroadcastPositionUpdated("AAPL")
			time.Sleep(time.Millisecond)
		}
	}()

	for i := 0; i < sends; i++ {
		msg := readMessage(t, conn)
		require.Equal(t, MessageTypePositionUpdated, msg.Type, "broadcast %d", i)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t)

	conn := dial(t, wsURL)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

package notifyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// notifyServer accepts one connection at a time: waits for authenticate,
// replies, then sends the queued notifications and closes.
func notifyServer(t *testing.T, perConn [][]Notification) *httptest.Server {
	t.Helper()
	var connIdx int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello struct {
			Type   string `json:"type"`
			UserID uint   `json:"userId"`
		}
		if json.Unmarshal(raw, &hello) != nil || hello.Type != "authenticate" {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"type": "authenticated", "userId": hello.UserID, "timestamp": time.Now().Format(time.RFC3339),
		})
		i := int(atomic.AddInt32(&connIdx, 1)) - 1
		if i < len(perConn) {
			for _, n := range perConn[i] {
				conn.WriteJSON(map[string]interface{}{"type": "notification", "data": n})
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNewRequiresIdentity(t *testing.T) {
	_, err := New(Config{WSURL: "ws://localhost/ws"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = New(Config{Token: "tok", UserID: 1})
	assert.Error(t, err, "ws url is required")

	c, err := New(Config{WSURL: "ws://localhost/ws", Token: "tok", UserID: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, c.deviceID)
}

func TestReceivesNotificationsAcrossReconnects(t *testing.T) {
	srv := notifyServer(t, [][]Notification{
		{{ID: 1, UserID: 7, Type: "transaction", Title: "first"}},
		{{ID: 2, UserID: 7, Type: "security", Title: "second"}},
	})
	defer srv.Close()

	got := make(chan Notification, 4)
	c, err := New(Config{
		WSURL:        wsURL(srv),
		Token:        "tok",
		UserID:       7,
		MinBackoff:   10 * time.Millisecond,
		MaxBackoff:   50 * time.Millisecond,
		PollInterval: -1,
		OnNotification: func(n Notification) {
			got <- n
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx)

	// one frame per connection: receiving both proves the agent redialed
	// and replayed the handshake after the server hung up.
	first := waitFor(t, got)
	assert.Equal(t, uint(1), first.ID)
	second := waitFor(t, got)
	assert.Equal(t, uint(2), second.ID)
}

func TestConnectionChangeCallback(t *testing.T) {
	srv := notifyServer(t, nil)
	defer srv.Close()

	states := make(chan bool, 8)
	c, err := New(Config{
		WSURL:              wsURL(srv),
		Token:              "tok",
		UserID:             1,
		MinBackoff:         10 * time.Millisecond,
		PollInterval:       -1,
		OnConnectionChange: func(up bool) {
			select {
			case states <- up:
			default:
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx)

	assert.True(t, waitFor(t, states), "first state is connected")
	assert.False(t, waitFor(t, states), "server hangup reports disconnect")
}

func TestPollFallbackSyncsList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"notifications": []Notification{{ID: 9, UserID: 3, Title: "polled"}},
		})
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	synced := make(chan []Notification, 2)
	c, err := New(Config{
		WSURL:        "ws://127.0.0.1:1/ws", // unreachable: realtime channel stays down
		APIBaseURL:   api.URL,
		Token:        "tok",
		UserID:       3,
		MinBackoff:   10 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		OnSync:       func(list []Notification) { synced <- list },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx)

	list := waitFor(t, synced)
	require.Len(t, list, 1)
	assert.Equal(t, uint(9), list[0].ID)
}

func TestBackoffDelayIsCappedWithJitter(t *testing.T) {
	min := time.Second
	max := 30 * time.Second
	for attempt := 0; attempt < 12; attempt++ {
		d := backoffDelay(attempt, min, max)
		assert.GreaterOrEqual(t, d, min/2, "attempt %d", attempt)
		assert.LessOrEqual(t, d, max, "attempt %d", attempt)
	}
	// repeated calls should not all collapse to one value
	seen := map[time.Duration]bool{}
	for i := 0; i < 50; i++ {
		seen[backoffDelay(5, min, max)] = true
	}
	assert.Greater(t, len(seen), 1, "jitter expected")
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

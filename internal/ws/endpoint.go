package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"kobo/config"
	"kobo/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Drainer replays a user's undelivered notifications once they authenticate.
type Drainer interface {
	DrainUndelivered(userID uint)
}

// client is the registry-side handle for one websocket connection.
type client struct {
	userID uint
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func (c *client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

type inboundFrame struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId"`
}

// UpgradeNotificationWS terminates the realtime notification channel.
// A connection is unauthenticated until its first valid authenticate frame;
// the frame's userId must match the token the socket was opened with. Frames
// that fail to parse or carry an unknown type are logged and dropped, never
// answered with an error frame.
func UpgradeNotificationWS(jwtCfg *config.JWTConfig, rtCfg *config.RealtimeConfig, registry *Registry, drainer Drainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		cl := &client{send: make(chan []byte, rtCfg.SendBuffer)}
		defer cl.close()
		go writePump(cl, conn, rtCfg)

		authenticated := false
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var f inboundFrame
			if json.Unmarshal(raw, &f) != nil {
				log.Printf("[WS] dropping non-JSON frame from user %d", claims.UserID)
				continue
			}
			switch {
			case !authenticated && f.Type == "authenticate":
				if f.UserID == 0 || f.UserID != claims.UserID {
					log.Printf("[WS] authenticate for user %d ignored: socket token belongs to user %d", f.UserID, claims.UserID)
					continue
				}
				cl.userID = f.UserID
				registry.Add(f.UserID, cl)
				authenticated = true
				reply, _ := json.Marshal(map[string]interface{}{
					"type":      "authenticated",
					"userId":    f.UserID,
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				cl.Enqueue(reply)
				drainer.DrainUndelivered(f.UserID)
			case !authenticated:
				log.Printf("[WS] frame %q before authenticate ignored", f.Type)
			default:
				log.Printf("[WS] unrecognized frame type %q from user %d", f.Type, cl.userID)
			}
		}
		if authenticated {
			registry.Remove(cl.userID, cl)
		}
	}
}

// writePump copies queued frames to the socket and keeps the connection alive
// with periodic pings. A failed write or ping just ends the pump; the read
// side notices the closed transport and cleans up the registry entry.
func writePump(cl *client, conn *websocket.Conn, cfg *config.RealtimeConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

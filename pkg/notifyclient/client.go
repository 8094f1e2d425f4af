// Package notifyclient maintains one logical realtime session against the
// notification websocket: it dials, authenticates, surfaces inbound events,
// and reconnects forever with capped exponential backoff. A polling fallback
// keeps the caller's local state eventually consistent even when the realtime
// channel stays down.
package notifyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Notification mirrors the server's record JSON.
type Notification struct {
	ID          uint       `json:"id"`
	UserID      uint       `json:"userId"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Priority    string     `json:"priority"`
	Data        string     `json:"data,omitempty"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt"`
	IsDelivered bool       `json:"isDelivered"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Config struct {
	// WSURL is the upgrade endpoint, e.g. ws://host/ws/notifications.
	WSURL string
	// APIBaseURL enables the REST polling fallback when non-empty.
	APIBaseURL string
	// Token and UserID identify the session. The client refuses to start
	// without them: the connection is gated on a known identity.
	Token  string
	UserID uint

	MinBackoff   time.Duration // default 1s
	MaxBackoff   time.Duration // default 30s
	PollInterval time.Duration // default 30s; set negative to disable

	// OnNotification fires once per notification frame received over the
	// socket. No dedup is performed across reconnects; delivery is
	// at-least-once.
	OnNotification func(n Notification)
	// OnSync fires with the full list on every successful poll.
	OnSync func(list []Notification)
	// OnConnectionChange reports channel up/down, for an offline indicator.
	OnConnectionChange func(connected bool)

	HTTPClient *http.Client
}

type Client struct {
	cfg      Config
	deviceID string
	httpc    *http.Client
}

var ErrMissingIdentity = errors.New("notifyclient: token and user id required")

func New(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.UserID == 0 {
		return nil, ErrMissingIdentity
	}
	if cfg.WSURL == "" {
		return nil, errors.New("notifyclient: ws url required")
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 30 * time.Second
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, deviceID: uuid.NewString(), httpc: httpc}, nil
}

// Run maintains the session until ctx is canceled. There is no retry cap;
// the agent redials for the lifetime of the process.
func (c *Client) Run(ctx context.Context) {
	if c.cfg.APIBaseURL != "" && c.cfg.PollInterval > 0 {
		go c.pollLoop(ctx)
	}
	attempt := 0
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.dialURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := backoffDelay(attempt, c.cfg.MinBackoff, c.cfg.MaxBackoff)
			log.Printf("[NOTIFY] dial failed, retrying in %s: %v", delay.Round(time.Millisecond), err)
			if !sleep(ctx, delay) {
				return
			}
			attempt++
			continue
		}
		attempt = 0
		c.setConnected(true)
		c.session(ctx, conn)
		c.setConnected(false)
		if !sleep(ctx, backoffDelay(0, c.cfg.MinBackoff, c.cfg.MaxBackoff)) {
			return
		}
	}
}

// session authenticates and reads frames until the connection dies.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	hello, _ := json.Marshal(map[string]interface{}{"type": "authenticate", "userId": c.cfg.UserID})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	const readWait = 90 * time.Second
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))
		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(raw, &frame) != nil {
			continue
		}
		switch frame.Type {
		case "authenticated":
			log.Printf("[NOTIFY] session authenticated for user %d", c.cfg.UserID)
		case "notification":
			var n Notification
			if err := json.Unmarshal(frame.Data, &n); err != nil {
				log.Printf("[NOTIFY] bad notification payload: %v", err)
				continue
			}
			if c.cfg.OnNotification != nil {
				c.cfg.OnNotification(n)
			}
		}
	}
}

// pollLoop refetches the notification list on a fixed interval, independent
// of the realtime channel.
func (c *Client) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.poll(ctx); err != nil {
				log.Printf("[NOTIFY] poll: %v", err)
			}
		}
	}
}

func (c *Client) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/api/v1/notifications", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if c.cfg.OnSync != nil {
		c.cfg.OnSync(body.Notifications)
	}
	return nil
}

func (c *Client) dialURL() string {
	return fmt.Sprintf("%s?token=%s&device=%s", c.cfg.WSURL, c.cfg.Token, c.deviceID)
}

func (c *Client) setConnected(up bool) {
	if c.cfg.OnConnectionChange != nil {
		c.cfg.OnConnectionChange(up)
	}
}

// backoffDelay returns min*2^attempt capped at max, with up to 50% jitter so
// a fleet reconnecting after a restart does not stampede.
func backoffDelay(attempt int, min, max time.Duration) time.Duration {
	d := min
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"kobo/internal/domain"
	"kobo/internal/models"
)

// NotificationStore is the durable store contract the dispatcher writes
// through. Store failures propagate to callers; the persisted record, not the
// live push, is the delivery guarantee.
type NotificationStore interface {
	Create(n *models.Notification) error
	ListUndelivered(userID uint) ([]models.Notification, error)
	MarkDelivered(id uint) error
}

type PreferenceStore interface {
	GetOrCreate(userID uint) (*models.NotificationPreference, error)
}

type UserStore interface {
	GetByID(id uint) (*models.User, error)
}

// Pusher is the live-connection index, satisfied by ws.Registry.
type Pusher interface {
	IsConnected(userID uint) bool
	ConnectedUserIDs() []uint
	SendToUser(userID uint, data []byte) bool
}

// Template carries the shared fields of a multi-user broadcast.
type Template struct {
	Type     string
	Title    string
	Message  string
	Priority string
	Data     map[string]interface{}
}

// Dispatcher is the only write path collaborators use to originate a
// notification: it persists the record, fans it out to the user's live
// connections, and falls back to a mobile push for offline users.
type Dispatcher struct {
	store  NotificationStore
	prefs  PreferenceStore
	users  UserStore
	pusher Pusher
	fcm    *FCMService
}

func NewDispatcher(store NotificationStore, prefs PreferenceStore, users UserStore, pusher Pusher, fcm *FCMService) *Dispatcher {
	return &Dispatcher{store: store, prefs: prefs, users: users, pusher: pusher, fcm: fcm}
}

// CreateAndSend persists a notification and attempts immediate delivery.
// Returns (nil, nil) when the user has opted out of the category. A store
// error is the caller's problem; push errors never are.
func (d *Dispatcher) CreateAndSend(userID uint, typ, title, message, priority string, data map[string]interface{}) (*models.Notification, error) {
	if !d.categoryAllowed(userID, typ) {
		log.Printf("[DISPATCH] user %d opted out of %s notifications, skipping", userID, typ)
		return nil, nil
	}
	if priority == "" {
		priority = domain.PriorityNormal
	}
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Priority: priority,
		Data:     dataJSON,
	}
	if err := d.store.Create(n); err != nil {
		return nil, err
	}
	if !d.PushToUser(userID, n) {
		d.sendMobilePush(userID, n)
	}
	return n, nil
}

// PushToUser delivers one notification to every live connection of the user.
// Delivered is declared at "user has a live session" granularity: the record
// is marked delivered once at least one connection is known, regardless of
// per-socket write outcomes. The mark happens before the send so a concurrent
// drain cannot replay the same record.
func (d *Dispatcher) PushToUser(userID uint, n *models.Notification) bool {
	if !d.pusher.IsConnected(userID) {
		return false
	}
	if err := d.store.MarkDelivered(n.ID); err != nil {
		log.Printf("[DISPATCH] mark delivered %d: %v", n.ID, err)
	}
	now := time.Now()
	n.IsDelivered = true
	n.DeliveredAt = &now
	payload, _ := json.Marshal(map[string]interface{}{"type": "notification", "data": n})
	if !d.pusher.SendToUser(userID, payload) {
		log.Printf("[DISPATCH] user %d disconnected during push of %d", userID, n.ID)
	}
	return true
}

// BroadcastToUsers creates one record per user from the template and attempts
// delivery to each. All created records are returned regardless of delivery
// outcome; opted-out users are skipped.
func (d *Dispatcher) BroadcastToUsers(userIDs []uint, tmpl Template) []*models.Notification {
	created := make([]*models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		n, err := d.CreateAndSend(id, tmpl.Type, tmpl.Title, tmpl.Message, tmpl.Priority, tmpl.Data)
		if err != nil {
			log.Printf("[DISPATCH] broadcast to user %d: %v", id, err)
			continue
		}
		if n != nil {
			created = append(created, n)
		}
	}
	return created
}

// SendTransactionNotification reports a transfer outcome to its user. Failed
// transfers are high priority; everything else is normal.
func (d *Dispatcher) SendTransactionNotification(userID uint, outcome, amount, currency, counterpartyName, transactionID string) (*models.Notification, error) {
	var title, message string
	priority := domain.PriorityNormal
	switch outcome {
	case domain.OutcomeSent:
		title = "Transfer sent"
		message = fmt.Sprintf("You sent %s %s", amount, currency)
		if counterpartyName != "" {
			message += " to " + counterpartyName
		}
	case domain.OutcomeReceived:
		title = "Money received"
		message = fmt.Sprintf("You received %s %s", amount, currency)
		if counterpartyName != "" {
			message += " from " + counterpartyName
		}
	case domain.OutcomeFailed:
		title = "Transfer failed"
		message = fmt.Sprintf("Your transfer of %s %s could not be completed", amount, currency)
		priority = domain.PriorityHigh
	default:
		title = "Transfer update"
		message = fmt.Sprintf("Transfer of %s %s: %s", amount, currency, outcome)
	}
	data := map[string]interface{}{
		"transactionId":    transactionID,
		"amount":           amount,
		"currency":         currency,
		"counterpartyName": counterpartyName,
		"outcome":          outcome,
	}
	return d.CreateAndSend(userID, domain.TypeTransaction, title, message, priority, data)
}

// SendSecurityNotification maps severity to priority: high is urgent, medium
// is high, anything else is normal.
func (d *Dispatcher) SendSecurityNotification(userID uint, title, message, severity string) (*models.Notification, error) {
	priority := domain.PriorityNormal
	switch severity {
	case domain.SeverityHigh:
		priority = domain.PriorityUrgent
	case domain.SeverityMedium:
		priority = domain.PriorityHigh
	}
	return d.CreateAndSend(userID, domain.TypeSecurity, title, message, priority, nil)
}

// SendSystemNotification broadcasts to currently connected users only.
// System notices are transient: offline users get no record and no catch-up.
// No-op when nobody is connected.
func (d *Dispatcher) SendSystemNotification(title, message, priority string) []*models.Notification {
	ids := d.pusher.ConnectedUserIDs()
	if len(ids) == 0 {
		return nil
	}
	return d.BroadcastToUsers(ids, Template{
		Type:     domain.TypeSystem,
		Title:    title,
		Message:  message,
		Priority: priority,
	})
}

// DrainUndelivered replays the user's undelivered notifications in creation
// order. This runs on authenticate and is the only redelivery mechanism;
// there is no background sweep. The loop stops as soon as the user drops.
func (d *Dispatcher) DrainUndelivered(userID uint) {
	list, err := d.store.ListUndelivered(userID)
	if err != nil {
		log.Printf("[DISPATCH] drain for user %d: %v", userID, err)
		return
	}
	for i := range list {
		if !d.PushToUser(userID, &list[i]) {
			return
		}
	}
	if len(list) > 0 {
		log.Printf("[DISPATCH] drained %d notifications to user %d", len(list), userID)
	}
}

// categoryAllowed checks opt-in flags for the guarded types. Unknown or
// system types always pass. Preference read failures fail open so a store
// hiccup never suppresses a security alert.
func (d *Dispatcher) categoryAllowed(userID uint, typ string) bool {
	if d.prefs == nil {
		return true
	}
	p, err := d.prefs.GetOrCreate(userID)
	if err != nil {
		log.Printf("[DISPATCH] preferences for user %d: %v", userID, err)
		return true
	}
	switch typ {
	case domain.TypeTransaction:
		return p.Transaction
	case domain.TypeSecurity:
		return p.Security
	case domain.TypePromo:
		return p.Marketing
	default:
		return true
	}
}

// sendMobilePush fires a best-effort FCM push for a user with no live
// websocket. The store record stays undelivered either way; FCM only shortens
// the time to a visible alert on mobile.
func (d *Dispatcher) sendMobilePush(userID uint, n *models.Notification) {
	if d.fcm == nil || d.users == nil {
		return
	}
	if d.prefs != nil {
		if p, err := d.prefs.GetOrCreate(userID); err == nil && !p.Push {
			return
		}
	}
	u, err := d.users.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	_ = d.fcm.Send(context.Background(), u.FCMToken, n.Title, n.Message, map[string]string{
		"type":           n.Type,
		"notificationId": fmt.Sprintf("%d", n.ID),
	})
}

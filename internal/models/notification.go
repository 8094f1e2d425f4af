package models

import "time"

// Notification is the durable record behind every realtime push. The record is
// the source of truth: a failed or skipped push leaves it undelivered and it
// is drained to the user on their next authenticate.
type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"userId"`
	Type        string     `gorm:"size:50;not null;index" json:"type"`
	Title       string     `gorm:"size:255" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	Priority    string     `gorm:"size:20;not null;default:normal" json:"priority"`
	Data        string     `gorm:"type:text" json:"data,omitempty"` // JSON payload, opaque to this subsystem
	IsRead      bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt      *time.Time `json:"readAt"`
	IsDelivered bool       `gorm:"not null;default:false" json:"isDelivered"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	CreatedAt   time.Time  `json:"createdAt"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

package models

import "time"

// NotificationPreference holds per-user opt-in flags. The dispatcher consults
// these before creating a record: an opted-out category is never stored or
// pushed. Push controls the mobile (FCM) fallback only, not the websocket.
type NotificationPreference struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Transaction bool      `gorm:"not null" json:"transaction"`
	Security    bool      `gorm:"not null" json:"security"`
	Marketing   bool      `gorm:"not null" json:"marketing"`
	Push        bool      `gorm:"not null" json:"push"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

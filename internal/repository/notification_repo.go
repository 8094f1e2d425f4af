package repository

import (
	"time"

	"kobo/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// ListByUserID returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUserID(userID uint, limit, offset int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListUndelivered returns the user's undelivered notifications, oldest first,
// so a drain replays them in creation order.
func (r *NotificationRepository) ListUndelivered(userID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.Where("user_id = ? AND is_delivered = ?", userID, false).Order("created_at ASC").Find(&list).Error
	return list, err
}

// MarkDelivered flips the delivered flag. Already-delivered records are left
// untouched so delivered_at never moves.
func (r *NotificationRepository) MarkDelivered(id uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND is_delivered = ?", id, false).
		Updates(map[string]interface{}{"is_delivered": true, "delivered_at": time.Now()}).Error
}

// MarkRead flips the read flag on the caller's own notification. Re-marking is
// a no-op and cross-user ids match no rows.
func (r *NotificationRepository) MarkRead(id, userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()}).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()}).Error
}

// Delete hard-deletes a notification scoped to its owner. Returns false when
// no row matched (unknown id or a different user's record).
func (r *NotificationRepository) Delete(id, userID uint) (bool, error) {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

func (r *NotificationRepository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

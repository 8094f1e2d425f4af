package repository

import (
	"kobo/internal/models"

	"gorm.io/gorm"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetOrCreate returns the user's preference row, creating it with everything
// opted in on first access.
func (r *PreferenceRepository) GetOrCreate(userID uint) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := r.db.Where(models.NotificationPreference{UserID: userID}).
		Attrs(models.NotificationPreference{Transaction: true, Security: true, Marketing: true, Push: true}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PreferenceRepository) Update(userID uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.NotificationPreference{}).Where("user_id = ?", userID).Updates(updates).Error
}

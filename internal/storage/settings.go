package storage

import (
	"context"
	"time"

	"github.com/tajious/ejare/internal/models"
)

func (s *GormStorage) ListNotificationSettings(ctx context.Context) ([]models.NotificationSetting, error) {
	var settings []models.NotificationSetting
	if err := s.db.WithContext(ctx).Order("channel").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveNotificationSetting inserts or replaces the row for setting.Channel.
func (s *GormStorage) SaveNotificationSetting(ctx context.Context, setting *models.NotificationSetting) error {
	setting.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(setting).Error
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tajious/ejare/internal/models"
	"gorm.io/gorm"
)

func (s *GormStorage) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) UpdateUserLastLogin(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login", time.Now().UTC()).Error
}

func (s *GormStorage) CountUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

package storage

import (
	"context"

	"github.com/tajious/ejare/internal/models"
)

type AuditFilter struct {
	Action   models.AuditAction
	EntityID string
	Page     int
	PageSize int
}

func (s *GormStorage) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStorage) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLog
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

package storage

import (
	"context"

	"github.com/tajious/ejare/internal/models"
)

type ExpenseFilter struct {
	Category   string
	ContractID string
	From       string
	To         string
	Page       int
	PageSize   int
}

func (s *GormStorage) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return s.db.WithContext(ctx).Create(expense).Error
}

func (s *GormStorage) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, int64, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Expense{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ContractID != "" {
		query = query.Where("contract_id = ?", filter.ContractID)
	}
	if filter.From != "" {
		query = query.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("date <= ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []models.Expense
	err := query.Order("date DESC, created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (s *GormStorage) DeleteExpense(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Expense{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

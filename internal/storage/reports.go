package storage

import (
	"context"

	"github.com/tajious/ejare/internal/models"
)

type MonthlyIncomeRow struct {
	Month string
	Count int64
	Total int64
}

type StatusCountRow struct {
	Status models.ContractStatus
	Count  int64
}

type CategoryExpenseRow struct {
	Category string
	Count    int64
	Total    int64
}

// Dates are stored as YYYY-MM-DD text, so the first seven characters are the month.
const monthExpr = "substr(start_date, 1, 7)"

// IncomeByMonth sums rent of signed and active contracts per start month.
func (s *GormStorage) IncomeByMonth(ctx context.Context, year string) ([]MonthlyIncomeRow, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Contract{}).
		Select(monthExpr+" AS month, COUNT(*) AS count, COALESCE(SUM(rent_amount), 0) AS total").
		Where("status IN ?", []models.ContractStatus{models.StatusSigned, models.StatusActive})
	if year != "" {
		query = query.Where("start_date LIKE ?", year+"-%")
	}

	var rows []MonthlyIncomeRow
	if err := query.Group(monthExpr).Order("month").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStorage) StatusDistribution(ctx context.Context) ([]StatusCountRow, error) {
	var rows []StatusCountRow
	err := s.db.WithContext(ctx).
		Model(&models.Contract{}).
		Select("status, COUNT(*) AS count").
		Where("status <> ?", models.StatusDeleted).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStorage) ExpensesByCategory(ctx context.Context, year string) ([]CategoryExpenseRow, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("category, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total")
	if year != "" {
		query = query.Where("date LIKE ?", year+"-%")
	}

	var rows []CategoryExpenseRow
	if err := query.Group("category").Order("total DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

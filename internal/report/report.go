// Package report builds the dashboard aggregates. Nothing is cached; every
// call reads the store.
package report

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/validation"
)

type MonthlyIncome struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
	Total int64  `json:"total"`
}

type StatusCount struct {
	Status models.ContractStatus `json:"status"`
	Count  int64                 `json:"count"`
}

type CategoryExpense struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Total    int64  `json:"total"`
	Average  string `json:"average"`
}

type IncomeReport struct {
	Year   string          `json:"year,omitempty"`
	Months []MonthlyIncome `json:"months"`
	Total  int64           `json:"total"`
}

type StatusReport struct {
	Statuses []StatusCount `json:"statuses"`
	Total    int64         `json:"total"`
}

type ExpenseReport struct {
	Year       string            `json:"year,omitempty"`
	Categories []CategoryExpense `json:"categories"`
	Total      int64             `json:"total"`
}

type Service struct {
	store storage.ReportStore
}

func NewService(store storage.ReportStore) *Service {
	return &Service{store: store}
}

func normalizeYear(year string) (string, error) {
	year = validation.NormalizeDigits(year)
	if year == "" {
		return "", nil
	}
	if n, err := strconv.Atoi(year); err != nil || len(year) != 4 || n < 1000 {
		return "", apperrors.New(apperrors.CodeValidation, "سال نامعتبر است").
			WithDetails(map[string]string{"year": "len=4"})
	}
	return year, nil
}

// Income sums the rent of signed and active contracts by start month.
func (s *Service) Income(ctx context.Context, year string) (*IncomeReport, error) {
	year, err := normalizeYear(year)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.IncomeByMonth(ctx, year)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to aggregate income")
	}

	out := &IncomeReport{Year: year, Months: make([]MonthlyIncome, 0, len(rows))}
	for _, r := range rows {
		out.Months = append(out.Months, MonthlyIncome{Month: r.Month, Count: r.Count, Total: r.Total})
		out.Total += r.Total
	}
	return out, nil
}

// Status counts contracts per status. Every non-deleted status is present,
// with zero when no contract has it.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	rows, err := s.store.StatusDistribution(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to aggregate statuses")
	}
	counts := make(map[models.ContractStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	out := &StatusReport{}
	for _, status := range []models.ContractStatus{
		models.StatusDraft, models.StatusActive, models.StatusSigned, models.StatusTerminated,
	} {
		out.Statuses = append(out.Statuses, StatusCount{Status: status, Count: counts[status]})
		out.Total += counts[status]
	}
	return out, nil
}

// Expenses groups expenses by category. Averages are rounded to whole rials.
func (s *Service) Expenses(ctx context.Context, year string) (*ExpenseReport, error) {
	year, err := normalizeYear(year)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ExpensesByCategory(ctx, year)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to aggregate expenses")
	}

	out := &ExpenseReport{Year: year, Categories: make([]CategoryExpense, 0, len(rows))}
	for _, r := range rows {
		avg := decimal.Zero
		if r.Count > 0 {
			avg = decimal.NewFromInt(r.Total).Div(decimal.NewFromInt(r.Count))
		}
		out.Categories = append(out.Categories, CategoryExpense{
			Category: r.Category,
			Count:    r.Count,
			Total:    r.Total,
			Average:  avg.Round(0).String(),
		})
		out.Total += r.Total
	}
	return out, nil
}

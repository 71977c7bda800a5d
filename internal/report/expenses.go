package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/audit"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/validation"
)

type ExpenseInput struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Category    string `json:"category" validate:"required,max=64"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Date        string `json:"date" validate:"required,ymd"`
	ContractID  string `json:"contractId" validate:"omitempty,max=64"`
}

type ExpenseList struct {
	Expenses []models.Expense `json:"expenses"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// Ledger records expenses that feed the expense report.
type Ledger struct {
	expenses  storage.ExpenseStore
	contracts storage.ContractStore
	audit     *audit.Recorder
}

func NewLedger(expenses storage.ExpenseStore, contracts storage.ContractStore, rec *audit.Recorder) *Ledger {
	return &Ledger{expenses: expenses, contracts: contracts, audit: rec}
}

func (l *Ledger) Create(ctx context.Context, in ExpenseInput, actor audit.Actor) (*models.Expense, error) {
	in.Date = validation.NormalizeDate(in.Date)
	in.Category = strings.TrimSpace(in.Category)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "اطلاعات هزینه نامعتبر است").
			WithDetails(validation.Fields(err))
	}

	expense := &models.Expense{
		ID:          uuid.NewString(),
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		CreatedAt:   time.Now().UTC(),
	}
	if in.ContractID != "" {
		if _, err := l.contracts.GetContract(ctx, in.ContractID); err != nil {
			if errors.Is(err, storage.ErrContractNotFound) {
				return nil, apperrors.New(apperrors.CodeValidation, "قرارداد مرتبط یافت نشد").
					WithDetails(map[string]string{"contractId": "exists"})
			}
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load contract")
		}
		expense.ContractID = &in.ContractID
	}

	if err := l.expenses.CreateExpense(ctx, expense); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create expense")
	}
	l.audit.Record(ctx, audit.Entry{
		Action:   models.AuditExpenseCreate,
		Actor:    actor,
		EntityID: expense.ID,
		Details:  map[string]any{"amount": expense.Amount, "category": expense.Category},
	})
	return expense, nil
}

func (l *Ledger) List(ctx context.Context, filter storage.ExpenseFilter) (*ExpenseList, error) {
	filter.From = validation.NormalizeDate(filter.From)
	filter.To = validation.NormalizeDate(filter.To)
	expenses, total, err := l.expenses.ListExpenses(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list expenses")
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	page, pageSize := storage.NormalizePage(filter.Page, filter.PageSize)
	return &ExpenseList{Expenses: expenses, Total: total, Page: page, PageSize: pageSize}, nil
}

func (l *Ledger) Delete(ctx context.Context, id string, actor audit.Actor) error {
	if err := l.expenses.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, storage.ErrExpenseNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "هزینه یافت نشد")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to delete expense")
	}
	l.audit.Record(ctx, audit.Entry{Action: models.AuditExpenseDelete, Actor: actor, EntityID: id})
	return nil
}

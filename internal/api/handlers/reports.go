package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/api/dto"
	"github.com/tajious/ejare/internal/report"
	"github.com/tajious/ejare/internal/storage"
)

type ReportHandler struct {
	reports *report.Service
	ledger  *report.Ledger
}

func NewReportHandler(reports *report.Service, ledger *report.Ledger) *ReportHandler {
	return &ReportHandler{reports: reports, ledger: ledger}
}

func (h *ReportHandler) Income(c *fiber.Ctx) error {
	rep, err := h.reports.Income(c.UserContext(), c.Query("year"))
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

func (h *ReportHandler) Status(c *fiber.Ctx) error {
	rep, err := h.reports.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

func (h *ReportHandler) Expenses(c *fiber.Ctx) error {
	rep, err := h.reports.Expenses(c.UserContext(), c.Query("year"))
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

type ListExpensesQuery struct {
	PageQuery
	Category   string `query:"category"`
	ContractID string `query:"contractId"`
	From       string `query:"from"`
	To         string `query:"to"`
}

func (h *ReportHandler) ListExpenses(c *fiber.Ctx) error {
	var q ListExpensesQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	list, err := h.ledger.List(c.UserContext(), storage.ExpenseFilter{
		Category:   q.Category,
		ContractID: q.ContractID,
		From:       q.From,
		To:         q.To,
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *ReportHandler) CreateExpense(c *fiber.Ctx) error {
	in, err := dto.DecodeExpense(c.Body())
	if err != nil {
		return err
	}

	expense, err := h.ledger.Create(c.UserContext(), in, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(expense)
}

func (h *ReportHandler) DeleteExpense(c *fiber.Ctx) error {
	if err := h.ledger.Delete(c.UserContext(), c.Params("id"), actor(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

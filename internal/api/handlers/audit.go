package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/audit"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
)

type AuditHandler struct {
	audit *audit.Recorder
}

func NewAuditHandler(rec *audit.Recorder) *AuditHandler {
	return &AuditHandler{audit: rec}
}

type ListAuditQuery struct {
	PageQuery
	Action   string `query:"action"`
	EntityID string `query:"entityId"`
}

type ListAuditResponse struct {
	Logs     []models.AuditLog `json:"logs"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

func (h *AuditHandler) List(c *fiber.Ctx) error {
	var q ListAuditQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	filter := storage.AuditFilter{
		Action:   models.AuditAction(q.Action),
		EntityID: q.EntityID,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	logs, total, err := h.audit.List(c.UserContext(), filter)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to list audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	page, pageSize := storage.NormalizePage(q.Page, q.PageSize)
	return c.JSON(ListAuditResponse{Logs: logs, Total: total, Page: page, PageSize: pageSize})
}

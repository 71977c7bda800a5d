package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/api/dto"
	"github.com/tajious/ejare/internal/audit"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/notify"
)

type SettingsHandler struct {
	settings   *notify.Settings
	dispatcher *notify.Dispatcher
	audit      *audit.Recorder
}

func NewSettingsHandler(settings *notify.Settings, dispatcher *notify.Dispatcher, rec *audit.Recorder) *SettingsHandler {
	return &SettingsHandler{settings: settings, dispatcher: dispatcher, audit: rec}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	list, err := h.settings.List(c.UserContext())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to load notification settings")
	}
	return c.JSON(fiber.Map{"channels": list})
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	updates, err := dto.DecodeSettings(c.Body())
	if err != nil {
		return err
	}

	who := actor(c)
	if err := h.settings.Update(c.UserContext(), updates, who.ID); err != nil {
		return err
	}

	changed := make([]models.Channel, 0, len(updates))
	for _, u := range updates {
		changed = append(changed, u.Channel)
	}
	h.audit.Record(c.UserContext(), audit.Entry{
		Action:  models.AuditSettingsUpdate,
		Actor:   who,
		Details: map[string]any{"channels": changed},
	})
	return h.Get(c)
}

// Test probes every channel and reports per-channel results. A failing
// probe is reported in the body, not as an HTTP error.
func (h *SettingsHandler) Test(c *fiber.Ctx) error {
	results, err := h.dispatcher.TestAll(c.UserContext())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to load notification settings")
	}
	return c.JSON(fiber.Map{"results": results})
}

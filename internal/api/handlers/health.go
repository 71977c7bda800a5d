package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/notify"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	kv       Pinger
	settings *notify.Settings
	now      func() time.Time
}

func NewHealthHandler(db, kv Pinger, settings *notify.Settings) *HealthHandler {
	return &HealthHandler{db: db, kv: kv, settings: settings, now: time.Now}
}

type channelHealth struct {
	Enabled    bool `json:"enabled"`
	Configured bool `json:"configured"`
}

type HealthResponse struct {
	Status    string                           `json:"status"`
	Database  string                           `json:"database"`
	KV        string                           `json:"kv"`
	Channels  map[models.Channel]channelHealth `json:"channels"`
	Timestamp time.Time                        `json:"timestamp"`
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// Health reports liveness and which notification channels are ready. It
// answers 503 only when the database is unreachable.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Channels:  map[models.Channel]channelHealth{},
		Timestamp: h.now().UTC(),
	}

	var g errgroup.Group
	g.Go(func() error {
		resp.Database = probe(ctx, h.db)
		return nil
	})
	g.Go(func() error {
		resp.KV = probe(ctx, h.kv)
		return nil
	})
	_ = g.Wait()

	if h.settings != nil {
		if channels, err := h.settings.Channels(ctx); err == nil {
			for _, ch := range channels {
				resp.Channels[ch.Name()] = channelHealth{Enabled: ch.Enabled(), Configured: ch.Configured()}
			}
		}
	}

	status := fiber.StatusOK
	switch {
	case resp.Database != "ok":
		resp.Status = "unavailable"
		status = fiber.StatusServiceUnavailable
	case resp.KV == "error":
		resp.Status = "degraded"
	}
	return c.Status(status).JSON(resp)
}

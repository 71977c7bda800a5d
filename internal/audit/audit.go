// Package audit appends audit log entries on a best-effort basis.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
)

type Actor struct {
	Role models.Role
	ID   string
	IP   string
}

type Entry struct {
	Action   models.AuditAction
	Actor    Actor
	EntityID string
	Details  map[string]any
}

type Recorder struct {
	store  storage.AuditStore
	logger *logger.Logger
}

func NewRecorder(store storage.AuditStore, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{store: store, logger: log}
}

// Record writes entry. A failed write is logged and never returned.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.store == nil {
		return
	}

	row := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		ActorRole: entry.Actor.Role,
		ActorID:   entry.Actor.ID,
		EntityID:  entry.EntityID,
		IPAddress: entry.Actor.IP,
		CreatedAt: time.Now().UTC(),
	}
	if len(entry.Details) > 0 {
		if raw, err := json.Marshal(entry.Details); err == nil {
			row.Details = string(raw)
		}
	}

	if err := r.store.CreateAuditLog(ctx, row); err != nil {
		ctx = r.logger.WithField(ctx, "audit_action", string(entry.Action))
		r.logger.Error(ctx, "failed to write audit log", err)
	}
}

func (r *Recorder) List(ctx context.Context, filter storage.AuditFilter) ([]models.AuditLog, int64, error) {
	return r.store.ListAuditLogs(ctx, filter)
}

func ActorFromClaims(claims *models.Claims, ip string) Actor {
	if claims == nil {
		return Actor{IP: ip}
	}
	return Actor{Role: claims.Role, ID: claims.Subject(), IP: ip}
}

package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/storage/storagetest"
)

type failingStore struct{}

func (failingStore) CreateAuditLog(context.Context, *models.AuditLog) error {
	return errors.New("disk full")
}

func (failingStore) ListAuditLogs(context.Context, storage.AuditFilter) ([]models.AuditLog, int64, error) {
	return nil, 0, nil
}

func TestRecordPersistsEntry(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	rec := NewRecorder(store, nil)

	rec.Record(ctx, Entry{
		Action:   models.AuditContractSign,
		Actor:    Actor{Role: models.RoleTenant, ID: "c1", IP: "10.0.0.1"},
		EntityID: "c1",
		Details:  map[string]any{"channels": 2},
	})

	rows, total, err := rec.List(ctx, storage.AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, models.AuditContractSign, rows[0].Action)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)
	assert.JSONEq(t, `{"channels":2}`, rows[0].Details)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(failingStore{}, logger.New(logger.Options{ServiceName: "test", Output: &buf}))

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: models.AuditLogout})
	})
	assert.Contains(t, buf.String(), "failed to write audit log")
	assert.Contains(t, buf.String(), "disk full")
}

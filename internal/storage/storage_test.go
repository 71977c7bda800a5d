package storage_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
	"github.com/tajious/ejare/internal/storage/storagetest"
)

func newContract(number, tenant string, status models.ContractStatus, start string, rent int64) *models.Contract {
	return &models.Contract{
		ID:              uuid.NewString(),
		ContractNumber:  number,
		AccessCode:      "123456",
		TenantName:      tenant,
		TenantEmail:     "t@x.com",
		LandlordName:    "مالک",
		LandlordEmail:   "l@x.com",
		PropertyAddress: "تهران، خیابان آزادی",
		RentAmount:      rent,
		StartDate:       start,
		EndDate:         "2024-12-31",
		Status:          status,
		Version:         1,
	}
}

func TestContractCRUD(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	c := newContract("RNT1", "علی", models.StatusActive, "2024-01-01", 5000000)
	require.NoError(t, store.CreateContract(ctx, c))

	dup := newContract("RNT1", "رضا", models.StatusActive, "2024-01-01", 1)
	assert.ErrorIs(t, store.CreateContract(ctx, dup), storage.ErrDuplicate)

	got, err := store.GetContractByNumber(ctx, "RNT1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, int64(5000000), got.RentAmount)

	_, err = store.GetContract(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrContractNotFound)

	deleted, err := store.DeleteContract(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteContract(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTransitionContractGuards(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	c := newContract("RNT2", "علی", models.StatusActive, "2024-01-01", 100)
	require.NoError(t, store.CreateContract(ctx, c))

	ok, err := store.TransitionContract(ctx, c.ID, storage.Guard{From: []models.ContractStatus{models.StatusDraft}}, map[string]any{"status": models.StatusActive})
	require.NoError(t, err)
	assert.False(t, ok, "guard on draft must not match an active row")

	ok, err = store.TransitionContract(ctx, c.ID, storage.Guard{From: []models.ContractStatus{models.StatusActive}, Version: 2}, map[string]any{"tenant_name": "x"})
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not match")

	ok, err = store.TransitionContract(ctx, c.ID, storage.Guard{From: []models.ContractStatus{models.StatusActive}, Version: 1}, map[string]any{"status": models.StatusSigned})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSigned, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestListContractsFiltersAndHidesDeleted(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	require.NoError(t, store.CreateContract(ctx, newContract("RNT10", "Ali Rezaei", models.StatusActive, "2024-01-01", 100)))
	require.NoError(t, store.CreateContract(ctx, newContract("RNT11", "Sara Ahmadi", models.StatusSigned, "2024-02-01", 200)))
	require.NoError(t, store.CreateContract(ctx, newContract("RNT12", "Ali Karimi", models.StatusDeleted, "2024-02-01", 300)))

	all, total, err := store.ListContracts(ctx, storage.ContractFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	byName, total, err := store.ListContracts(ctx, storage.ContractFilter{Search: "ali"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "RNT10", byName[0].ContractNumber)

	byStatus, _, err := store.ListContracts(ctx, storage.ContractFilter{Status: models.StatusSigned})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "RNT11", byStatus[0].ContractNumber)

	paged, total, err := store.ListContracts(ctx, storage.ContractFilter{Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, paged, 1)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	require.NoError(t, store.CreateContract(ctx, newContract("RNT20", "a", models.StatusActive, "2024-01-05", 100)))
	require.NoError(t, store.CreateContract(ctx, newContract("RNT21", "b", models.StatusSigned, "2024-01-20", 250)))
	require.NoError(t, store.CreateContract(ctx, newContract("RNT22", "c", models.StatusTerminated, "2024-01-20", 999)))
	require.NoError(t, store.CreateContract(ctx, newContract("RNT23", "d", models.StatusSigned, "2024-03-01", 50)))

	income, err := store.IncomeByMonth(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, income, 2)
	assert.Equal(t, storage.MonthlyIncomeRow{Month: "2024-01", Count: 2, Total: 350}, income[0])
	assert.Equal(t, storage.MonthlyIncomeRow{Month: "2024-03", Count: 1, Total: 50}, income[1])

	statuses, err := store.StatusDistribution(ctx)
	require.NoError(t, err)
	counts := map[models.ContractStatus]int64{}
	for _, row := range statuses {
		counts[row.Status] = row.Count
	}
	assert.Equal(t, map[models.ContractStatus]int64{
		models.StatusActive:     1,
		models.StatusSigned:     2,
		models.StatusTerminated: 1,
	}, counts)

	for _, e := range []models.Expense{
		{ID: uuid.NewString(), Amount: 30, Category: "repair", Date: "2024-02-01"},
		{ID: uuid.NewString(), Amount: 70, Category: "repair", Date: "2024-05-01"},
		{ID: uuid.NewString(), Amount: 10, Category: "tax", Date: "2023-05-01"},
	} {
		e := e
		require.NoError(t, store.CreateExpense(ctx, &e))
	}

	byCategory, err := store.ExpensesByCategory(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, storage.CategoryExpenseRow{Category: "repair", Count: 2, Total: 100}, byCategory[0])
}

func TestUsersSettingsAuditExpenses(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	user := &models.User{ID: uuid.NewString(), Username: "admin", Password: "hash", Role: models.RoleAdmin}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.ErrorIs(t, store.CreateUser(ctx, &models.User{ID: uuid.NewString(), Username: "admin", Password: "x", Role: models.RoleAdmin}), storage.ErrDuplicate)

	count, err := store.CountUsersByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.UpdateUserLastLogin(ctx, user.ID))
	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	require.NoError(t, store.SaveNotificationSetting(ctx, &models.NotificationSetting{Channel: models.ChannelTelegram, Enabled: true, Config: `{"chatId":"1"}`}))
	require.NoError(t, store.SaveNotificationSetting(ctx, &models.NotificationSetting{Channel: models.ChannelTelegram, Enabled: false}))
	settings, err := store.ListNotificationSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.False(t, settings[0].Enabled)

	for _, action := range []models.AuditAction{models.AuditLogin, models.AuditLogout, models.AuditLogin} {
		require.NoError(t, store.CreateAuditLog(ctx, &models.AuditLog{ID: uuid.NewString(), Action: action, CreatedAt: time.Now()}))
	}
	logins, total, err := store.ListAuditLogs(ctx, storage.AuditFilter{Action: models.AuditLogin})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logins, 2)

	expense := &models.Expense{ID: uuid.NewString(), Amount: 10, Category: "tax", Date: "2024-01-01"}
	require.NoError(t, store.CreateExpense(ctx, expense))
	require.NoError(t, store.DeleteExpense(ctx, expense.ID))
	assert.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), storage.ErrExpenseNotFound)
}

func TestQueryErrorsReachLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.Options{ServiceName: "test", Output: buf})
	store, err := storage.NewSQLiteStorage(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	buf.Reset()

	_, err = store.GetContractByNumber(context.Background(), "RNT-missing")
	assert.ErrorIs(t, err, storage.ErrContractNotFound)
	assert.Empty(t, buf.String(), "not-found lookups are not query failures")

	require.Error(t, store.GetDB().Exec("SELECT * FROM no_such_table").Error)
	assert.Contains(t, buf.String(), `"message":"query failed"`)
	assert.Contains(t, buf.String(), "no_such_table")
}

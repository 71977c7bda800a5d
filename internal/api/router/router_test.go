package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tajious/ejare/internal/api/handlers"
	"github.com/tajious/ejare/internal/audit"
	"github.com/tajious/ejare/internal/auth"
	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/contract"
	"github.com/tajious/ejare/internal/kv"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/middleware"
	"github.com/tajious/ejare/internal/notify"
	"github.com/tajious/ejare/internal/report"
	"github.com/tajious/ejare/internal/storage/storagetest"
)

type testServer struct {
	app  *fiber.App
	auth *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storagetest.New(t)
	mem := kv.NewMemoryStore()
	log := logger.Nop()
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	rec := audit.NewRecorder(store, log)

	settings := notify.NewSettings(store, config.NotifyConfig{HTTPTimeout: time.Second})
	dispatcher := notify.NewDispatcher(settings, m, log)

	contracts := contract.NewService(contract.Options{
		Store:    store,
		Cache:    mem,
		Notifier: dispatcher,
		Audit:    rec,
		Metrics:  m,
		Logger:   log,
		Config: config.ContractConfig{
			SoftDelete:         true,
			CacheTTL:           time.Minute,
			MaxSignatureBytes:  2 << 20,
			MaxIDImageBytes:    5 << 20,
			MinSignatureWidth:  50,
			MinSignatureHeight: 20,
		},
	})
	authSvc := auth.NewService(auth.Options{
		Users:     store,
		Contracts: store,
		Store:     mem,
		JWT: config.JWTConfig{
			Secret:    "router-test-secret-with-enough-length",
			Issuer:    "ejare",
			AdminTTL:  time.Hour,
			TenantTTL: time.Hour,
		},
		Contract: config.ContractConfig{MaxFailedAttempts: 5, LockoutWindow: time.Hour},
		Audit:    rec,
		Metrics:  m,
		Logger:   log,
	})
	_, err := authSvc.SeedAdmin(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log)})
	app.Use(middleware.RequestContext(log), middleware.AccessLog(log, m))
	NewRouter(app, Options{
		AuthHandler:     handlers.NewAuthHandler(authSvc),
		ContractHandler: handlers.NewContractHandler(contracts),
		ReportHandler:   handlers.NewReportHandler(report.NewService(store), report.NewLedger(store, store, rec)),
		SettingsHandler: handlers.NewSettingsHandler(settings, dispatcher, rec),
		AuditHandler:    handlers.NewAuditHandler(rec),
		HealthHandler:   handlers.NewHealthHandler(store, mem, settings),
		AuthMiddleware:  middleware.NewAuthMiddleware(authSvc, log),
		RateLimiter:     middleware.NewRateLimiter(mem, config.RateLimitConfig{Enabled: true, Limit: 100, Window: time.Minute}, log),
		Gatherer:        reg,
	}).SetupRoutes()

	return &testServer{app: app, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, body any) string {
	t.Helper()
	status, out := s.do(t, http.MethodPost, "/api/login", "", body)
	require.Equal(t, http.StatusOK, status, out)
	return out["token"].(string)
}

func signatureDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for x := 0; x < 120; x++ {
		img.Set(x, 20, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

const legacyCreateBody = `{
	"tenant_name": "علی رضایی",
	"tenant_email": "tenant@example.com",
	"landlord_name": "محمد کریمی",
	"landlord_email": "landlord@example.com",
	"property_address": "تهران، خیابان ولیعصر",
	"rent_amount": "۱۵,۰۰۰,۰۰۰",
	"deposit": 100000000,
	"start_date": "2024-01-01",
	"end_date": "2024-12-31"
}`

func TestContractLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, health := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health["database"])

	status, _ = s.do(t, http.MethodGet, "/api/contracts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	adminToken := s.login(t, map[string]string{"username": "admin", "password": "admin-pass"})

	status, created := s.do(t, http.MethodPost, "/api/contracts", adminToken, legacyCreateBody)
	require.Equal(t, http.StatusCreated, status, created)
	number := created["contractNumber"].(string)
	code := created["accessCode"].(string)
	contractID := created["contract"].(map[string]any)["id"].(string)
	assert.Equal(t, float64(15000000), created["contract"].(map[string]any)["rentAmount"])

	tenantToken := s.login(t, map[string]string{"contract_number": number, "access_code": code})

	status, _ = s.do(t, http.MethodPost, "/api/contracts", tenantToken, legacyCreateBody)
	assert.Equal(t, http.StatusForbidden, status)

	status, list := s.do(t, http.MethodGet, "/api/contracts", tenantToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), list["total"])

	status, _ = s.do(t, http.MethodPut, "/api/contracts/"+contractID, adminToken, `{"status": "signed"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, signed := s.do(t, http.MethodPost, "/api/contracts/"+number+"/sign", tenantToken,
		map[string]string{"signature": signatureDataURL(t)})
	require.Equal(t, http.StatusOK, status, signed)
	assert.Equal(t, "signed", signed["contract"].(map[string]any)["status"])

	status, again := s.do(t, http.MethodPost, "/api/contracts/"+number+"/sign", tenantToken,
		map[string]string{"signature": signatureDataURL(t)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_SIGNED", again["code"])

	status, relogin := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"contractNumber": number, "accessCode": code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_SIGNED", relogin["code"])

	status, chart := s.do(t, http.MethodGet, "/api/charts/income", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(15000000), chart["total"])

	status, _ = s.do(t, http.MethodGet, "/api/charts/status", tenantToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, logs := s.do(t, http.MethodGet, "/api/audit-logs?action=contract_sign", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), logs["total"])

	status, _ = s.do(t, http.MethodPost, "/api/logout", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/charts/status", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSettingsAndExpensesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, map[string]string{"username": "admin", "password": "admin-pass"})

	status, updated := s.do(t, http.MethodPut, "/api/settings/notifications", adminToken,
		`{"telegram": {"enabled": true, "config": {"botToken": "123:abc", "chatId": "42"}}}`)
	require.Equal(t, http.StatusOK, status, updated)
	channels := updated["channels"].([]any)
	var telegram map[string]any
	for _, ch := range channels {
		if ch.(map[string]any)["channel"] == "telegram" {
			telegram = ch.(map[string]any)
		}
	}
	require.NotNil(t, telegram)
	assert.Equal(t, true, telegram["configured"])
	assert.Equal(t, "********", telegram["config"].(map[string]any)["botToken"])

	status, _ = s.do(t, http.MethodPut, "/api/settings/notifications", adminToken, `{"telegram": {"config": {"proxy": "x"}}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, expense := s.do(t, http.MethodPost, "/api/expenses", adminToken,
		`{"amount": "۲۵۰٬۰۰۰", "category": "تعمیرات", "date": "2024-03-01"}`)
	require.Equal(t, http.StatusCreated, status, expense)

	status, report := s.do(t, http.MethodGet, "/api/charts/expenses?year=2024", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(250000), report["total"])

	status, _ = s.do(t, http.MethodDelete, "/api/expenses/"+expense["id"].(string), adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodDelete, "/api/expenses/"+expense["id"].(string), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/health", "", nil)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "ejare_http_request_duration_seconds")
}

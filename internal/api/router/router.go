package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tajious/ejare/internal/api/handlers"
	"github.com/tajious/ejare/internal/middleware"
	"github.com/tajious/ejare/internal/models"
)

type Router struct {
	app             *fiber.App
	authHandler     *handlers.AuthHandler
	contractHandler *handlers.ContractHandler
	reportHandler   *handlers.ReportHandler
	settingsHandler *handlers.SettingsHandler
	auditHandler    *handlers.AuditHandler
	healthHandler   *handlers.HealthHandler
	authMiddleware  *middleware.AuthMiddleware
	rateLimiter     *middleware.RateLimiter
	gatherer        prometheus.Gatherer
}

type Options struct {
	AuthHandler     *handlers.AuthHandler
	ContractHandler *handlers.ContractHandler
	ReportHandler   *handlers.ReportHandler
	SettingsHandler *handlers.SettingsHandler
	AuditHandler    *handlers.AuditHandler
	HealthHandler   *handlers.HealthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimiter
	// Gatherer backs GET /metrics; nil leaves the route unregistered.
	Gatherer        prometheus.Gatherer
}

func NewRouter(app *fiber.App, opts Options) *Router {
	return &Router{
		app:             app,
		authHandler:     opts.AuthHandler,
		contractHandler: opts.ContractHandler,
		reportHandler:   opts.ReportHandler,
		settingsHandler: opts.SettingsHandler,
		auditHandler:    opts.AuditHandler,
		healthHandler:   opts.HealthHandler,
		authMiddleware:  opts.AuthMiddleware,
		rateLimiter:     opts.RateLimiter,
		gatherer:        opts.Gatherer,
	}
}

func (r *Router) SetupRoutes() {
	// Public routes
	r.app.Get("/api/health", r.healthHandler.Health)
	r.app.Post("/api/login", r.rateLimiter.RateLimit("login"), r.authHandler.Login)
	if r.gatherer != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	// Protected routes
	protected := r.app.Group("/api", r.authMiddleware.Authenticate())
	adminOnly := r.authMiddleware.RequireRole(models.RoleAdmin)
	tenantOnly := r.authMiddleware.RequireRole(models.RoleTenant)
	anyRole := r.authMiddleware.RequireRole(models.RoleAdmin, models.RoleTenant)

	protected.Post("/logout", r.authHandler.Logout)
	protected.Get("/me", r.authHandler.Me)

	protected.Get("/contracts", anyRole, r.contractHandler.List)
	protected.Post("/contracts", adminOnly, r.contractHandler.Create)
	protected.Get("/contracts/:id", anyRole, r.contractHandler.Get)
	protected.Put("/contracts/:id", adminOnly, r.contractHandler.Update)
	protected.Delete("/contracts/:id", adminOnly, r.contractHandler.Delete)
	protected.Post("/contracts/:id/activate", adminOnly, r.contractHandler.Activate)
	protected.Post("/contracts/:id/terminate", adminOnly, r.contractHandler.Terminate)
	protected.Post("/contracts/:contractNumber/sign", tenantOnly, r.contractHandler.Sign)

	protected.Get("/charts/income", adminOnly, r.reportHandler.Income)
	protected.Get("/charts/status", adminOnly, r.reportHandler.Status)
	protected.Get("/charts/expenses", adminOnly, r.reportHandler.Expenses)

	protected.Get("/expenses", adminOnly, r.reportHandler.ListExpenses)
	protected.Post("/expenses", adminOnly, r.reportHandler.CreateExpense)
	protected.Delete("/expenses/:id", adminOnly, r.reportHandler.DeleteExpense)

	protected.Get("/settings/notifications", adminOnly, r.settingsHandler.Get)
	protected.Put("/settings/notifications", adminOnly, r.settingsHandler.Update)
	protected.Post("/notifications/test", adminOnly, r.settingsHandler.Test)

	protected.Get("/audit-logs", adminOnly, r.auditHandler.List)
}

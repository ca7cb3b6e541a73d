package server

import (
	"errors"
	"strings"
	"time"

	"weighbridge-backend/internal/admin"
	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/config"
	"weighbridge-backend/internal/dashboard"
	"weighbridge-backend/internal/expense"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/record"
	"weighbridge-backend/internal/report"
	"weighbridge-backend/internal/scale"
	"weighbridge-backend/internal/settings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer needs. Mirror may be nil.
type Deps struct {
	Config *config.Config
	Hub    *scale.Hub
	Mirror record.Mirror
	Closer *report.Closer
	Logger *zap.Logger
}

// New builds the fiber app with every route registered.
func New(d Deps) *fiber.App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := d.Config.Location()
	if d.Hub == nil {
		d.Hub = scale.NewHub(d.Config.Scale.StaleAfter)
	}
	if d.Closer == nil {
		d.Closer = &report.Closer{Location: loc, Logger: logger}
	}

	app := fiber.New(fiber.Config{
		AppName:               "weighbridge",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(logger))

	corsOrigins := strings.Split(d.Config.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if d.Config.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(d.Config.JWTSecret))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Config.JWTSecret))
	adminOnly := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler())

	// Settings
	protected.Get("/settings", settings.GetSettingsHandler())
	protected.Put("/settings", adminOnly, settings.UpdateSettingsHandler())

	// Weighings
	protected.Post("/records", record.CreateRecordHandler(d.Hub))
	protected.Post("/records/final", record.FinalRecordHandler(d.Hub, d.Mirror))
	protected.Get("/records", record.ListRecordsHandler(loc))
	protected.Get("/records/:id", record.GetRecordHandler())
	protected.Get("/records/:id/slip", record.SlipHandler(loc))
	protected.Post("/records/:id/second-weight", record.SecondWeightHandler(d.Hub, d.Mirror))
	protected.Put("/records/:id", adminOnly, record.UpdateRecordHandler(d.Mirror))
	protected.Delete("/records/:id", adminOnly, record.DeleteRecordHandler())

	// Expenses
	protected.Post("/expenses", expense.CreateExpenseHandler(loc))
	protected.Get("/expenses", expense.ListExpensesHandler(loc))
	protected.Get("/expenses/categories", expense.ListCategoriesHandler())
	protected.Get("/expenses/summary/monthly", expense.MonthlyExpenseSummaryHandler(loc))
	protected.Put("/expenses/:id", adminOnly, expense.UpdateExpenseHandler(loc))
	protected.Delete("/expenses/:id", adminOnly, expense.DeleteExpenseHandler())

	// Live weight
	protected.Get("/scale/live", scale.LiveHandler(d.Hub))
	protected.Get("/scale/ws", scale.RequireUpgrade(), scale.StreamHandler(d.Hub))

	// Reports
	protected.Get("/reports/daily", report.DailySummaryHandler(loc))
	protected.Get("/reports/weekly", report.WeeklySummaryHandler(loc))
	protected.Get("/reports/monthly", report.MonthlySummaryHandler(loc))
	protected.Get("/reports/export", report.ExportHandler(loc))
	protected.Get("/dashboard/chart", dashboard.ChartHandler(loc))
	protected.Get("/daily-reports", report.ListDailyReportsHandler())

	// Audit
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", adminOnly, audit.UndoAuditLogHandler())

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(adminOnly)

	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Put("/users/:id/password", admin.ChangePasswordHandler())
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler())

	adminRoutes.Post("/monthly-reports", report.CreateMonthlyReportHandler(loc))
	adminRoutes.Get("/monthly-reports", report.ListMonthlyReportsHandler())
	adminRoutes.Get("/monthly-reports/:id", report.GetMonthlyReportHandler())
	adminRoutes.Post("/daily-reports/close", report.CloseDayHandler(d.Closer))

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{
				"error": e.Message,
			})
		}
		logger.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected server error",
		})
	}
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if id, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request", fields...)
		} else {
			logger.Debug("request", fields...)
		}
		return err
	}
}

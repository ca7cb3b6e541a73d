package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Archive keeps a copy of each daily closing outside the main database.
type Archive interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Notifier announces a daily closing, e.g. to a chat webhook.
type Notifier interface {
	NotifyDailyReport(ctx context.Context, report models.DailyReport) error
}

// Closer produces the end-of-day report. Archive and Notifier are optional.
type Closer struct {
	Location *time.Location
	Archive  Archive
	Notifier Notifier
	Logger   *zap.Logger
}

func (cl *Closer) logger() *zap.Logger {
	if cl.Logger == nil {
		return zap.L()
	}
	return cl.Logger
}

func (cl *Closer) location() *time.Location {
	if cl.Location == nil {
		return time.UTC
	}
	return cl.Location
}

// CloseDay stores (or replaces) the closing report of the day containing day.
// Archive and notification failures are logged and do not fail the closing.
func (cl *Closer) CloseDay(ctx context.Context, day time.Time) (models.DailyReport, error) {
	loc := cl.location()
	r := period.Span(day, day, loc)

	ds, err := Load(database.DB.WithContext(ctx), r)
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load day: %w", err)
	}
	s := Summarize(ds, r, loc)

	byType := make(map[string]float64)
	for _, vt := range VehicleTypeBreakdown(ds) {
		byType[vt.VehicleType] = vt.Revenue
	}

	report := models.DailyReport{
		Date:          s.StartDate,
		Weighings:     s.Weighings,
		Pending:       s.Pending,
		NetWeightKg:   s.NetWeightKg,
		Revenue:       s.TotalRevenue,
		Expenses:      s.TotalExpenses,
		NetProfit:     s.NetProfit,
		ByVehicleType: byType,
		ClosedAt:      time.Now().UTC(),
	}

	var existing models.DailyReport
	err = database.DB.WithContext(ctx).Where("date = ?", report.Date).First(&existing).Error
	switch {
	case err == nil:
		report.ID = existing.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.DailyReport{}, fmt.Errorf("find daily report: %w", err)
	}
	if err := database.DB.WithContext(ctx).Save(&report).Error; err != nil {
		return models.DailyReport{}, fmt.Errorf("save daily report: %w", err)
	}

	log := cl.logger().With(zap.String("date", report.Date))
	if cl.Archive != nil {
		if err := cl.Archive.SaveDailyReport(ctx, report); err != nil {
			log.Warn("daily report archive failed", zap.Error(err))
		}
	}
	if cl.Notifier != nil {
		if err := cl.Notifier.NotifyDailyReport(ctx, report); err != nil {
			log.Warn("daily report notification failed", zap.Error(err))
		}
	}
	log.Info("day closed",
		zap.Int("weighings", report.Weighings),
		zap.Float64("revenue", report.Revenue),
		zap.Float64("expenses", report.Expenses))
	return report, nil
}

// POST /api/admin/daily-reports/close?date=YYYY-MM-DD (defaults to today)
func CloseDayHandler(cl *Closer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day := time.Now()
		if d := c.Query("date"); d != "" {
			parsed, err := period.ParseDay(d, cl.location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			day = parsed
		}

		report, err := cl.CloseDay(c.UserContext(), day)
		if err != nil {
			cl.logger().Error("daily closing failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Day could not be closed")
		}
		return c.JSON(report)
	}
}

// GET /api/daily-reports?from=&to=
func ListDailyReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.DailyReport{})
		for _, bound := range []struct{ param, cond string }{
			{"from", "date >= ?"},
			{"to", "date <= ?"},
		} {
			v := c.Query(bound.param)
			if v == "" {
				continue
			}
			if _, err := period.ParseDay(v, time.UTC); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			dbq = dbq.Where(bound.cond, v)
		}

		var reports []models.DailyReport
		if err := dbq.Order("date DESC").Limit(366).Find(&reports).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Daily reports could not be listed")
		}
		return c.JSON(reports)
	}
}

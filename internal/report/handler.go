package report

import (
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/period"

	"github.com/gofiber/fiber/v2"
)

const maxReportDays = 366

func parseDayRange(c *fiber.Ctx, loc *time.Location) (period.Range, error) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		return period.Range{}, fiber.NewError(fiber.StatusBadRequest, "from and to are required (YYYY-MM-DD)")
	}
	from, to, err := period.Days(fromStr, toStr, loc)
	if err != nil {
		return period.Range{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	r := period.Range{From: *from, To: *to}
	if r.To.Sub(r.From) > maxReportDays*24*time.Hour+time.Hour {
		return period.Range{}, fiber.NewError(fiber.StatusBadRequest, "range must not exceed one year")
	}
	return r, nil
}

// GET /api/reports/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func DailySummaryHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := parseDayRange(c, loc)
		if err != nil {
			return err
		}
		s, _, err := Build(database.DB, r, loc, "daily")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be calculated")
		}
		return c.JSON(s)
	}
}

// GET /api/reports/weekly?year=2026&week=9 (ISO week, defaults to the current one)
func WeeklySummaryHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, week := time.Now().In(loc).ISOWeek()
		year = c.QueryInt("year", year)
		week = c.QueryInt("week", week)

		r, err := period.ISOWeek(year, week, loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		s, _, err := Build(database.DB, r, loc, "weekly")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be calculated")
		}
		return c.JSON(s)
	}
}

// GET /api/reports/monthly?year=2026&month=3
func MonthlySummaryHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := period.Month(c.QueryInt("year"), c.QueryInt("month"), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "year and month are required and must be valid")
		}
		s, ds, err := Build(database.DB, r, loc, "monthly")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be calculated")
		}
		s.ByVehicleType = VehicleTypeBreakdown(ds)
		s.ByCategory = CategoryBreakdown(ds)
		return c.JSON(s)
	}
}

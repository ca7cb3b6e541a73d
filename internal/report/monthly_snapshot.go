package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var ErrSnapshotExists = errors.New("a report for this month already exists")

type CreateMonthlyReportRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type MonthlyReportResponse struct {
	ID            uint    `json:"id"`
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	ReportDate    string  `json:"report_date"`
	Weighings     int     `json:"weighings"`
	NetWeightKg   float64 `json:"net_weight_kg"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	CreatedAt     string  `json:"created_at"`
}

type MonthlyReportDetail struct {
	MonthlyReportResponse
	ReportData Summary `json:"report_data"`
}

func toMonthlyResponse(r models.MonthlyReport) MonthlyReportResponse {
	return MonthlyReportResponse{
		ID:            r.ID,
		Year:          r.Year,
		Month:         r.Month,
		ReportDate:    r.ReportDate.Format("2006-01-02 15:04:05"),
		Weighings:     r.Weighings,
		NetWeightKg:   r.NetWeightKg,
		TotalRevenue:  r.TotalRevenue,
		TotalExpenses: r.TotalExpenses,
		NetProfit:     r.NetProfit,
		CreatedAt:     r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// SnapshotMonth stores the month's figures. Source rows are left untouched.
func SnapshotMonth(db *gorm.DB, year, month int, loc *time.Location, userID uint) (models.MonthlyReport, error) {
	r, err := period.Month(year, month, loc)
	if err != nil {
		return models.MonthlyReport{}, err
	}

	var existing int64
	if err := db.Model(&models.MonthlyReport{}).Where("year = ? AND month = ?", year, month).Count(&existing).Error; err != nil {
		return models.MonthlyReport{}, err
	}
	if existing > 0 {
		return models.MonthlyReport{}, ErrSnapshotExists
	}

	s, ds, err := Build(db, r, loc, "monthly")
	if err != nil {
		return models.MonthlyReport{}, err
	}
	s.ByVehicleType = VehicleTypeBreakdown(ds)
	s.ByCategory = CategoryBreakdown(ds)

	data, err := json.Marshal(s)
	if err != nil {
		return models.MonthlyReport{}, err
	}

	snap := models.MonthlyReport{
		Year:          year,
		Month:         month,
		ReportDate:    time.Now().UTC(),
		Weighings:     s.Weighings,
		NetWeightKg:   s.NetWeightKg,
		TotalRevenue:  s.TotalRevenue,
		TotalExpenses: s.TotalExpenses,
		NetProfit:     s.NetProfit,
		ReportData:    string(data),
		CreatedBy:     userID,
	}
	if err := db.Create(&snap).Error; err != nil {
		return models.MonthlyReport{}, fmt.Errorf("save monthly report: %w", err)
	}
	return snap, nil
}

// POST /api/admin/monthly-reports
func CreateMonthlyReportHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMonthlyReportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Year < 2000 || body.Month < 1 || body.Month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid year or month")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		snap, err := SnapshotMonth(database.DB, body.Year, body.Month, loc, userID)
		if errors.Is(err, ErrSnapshotExists) {
			return fiber.NewError(fiber.StatusConflict, "A report for this month already exists")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be created")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityReport,
			EntityID:    snap.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Monthly report created: %02d/%d", snap.Month, snap.Year),
			After:       toMonthlyResponse(snap),
		})

		return c.Status(fiber.StatusCreated).JSON(toMonthlyResponse(snap))
	}
}

// GET /api/admin/monthly-reports
func ListMonthlyReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reports []models.MonthlyReport
		if err := database.DB.Order("year DESC, month DESC").Find(&reports).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Reports could not be listed")
		}

		resp := make([]MonthlyReportResponse, 0, len(reports))
		for _, r := range reports {
			resp = append(resp, toMonthlyResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/monthly-reports/:id
func GetMonthlyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid report id")
		}

		var snap models.MonthlyReport
		if err := database.DB.First(&snap, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Report not found")
		}

		detail := MonthlyReportDetail{MonthlyReportResponse: toMonthlyResponse(snap)}
		if snap.ReportData != "" {
			// an unreadable payload still returns the headline figures
			_ = json.Unmarshal([]byte(snap.ReportData), &detail.ReportData)
		}
		return c.JSON(detail)
	}
}

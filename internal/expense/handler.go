package expense

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/metrics"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateExpenseRequest struct {
	Date        string  `json:"date"` // "2026-03-01", defaults to today
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type UpdateExpenseRequest struct {
	Date        *string  `json:"date"`
	Category    *string  `json:"category"`
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
}

type ExpenseResponse struct {
	ID          uint    `json:"id"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	CreatedBy   uint    `json:"created_by"`
}

type MonthlyExpenseSummaryItem struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type MonthlyExpenseSummaryResponse struct {
	Year       int                         `json:"year"`
	Month      int                         `json:"month"`
	Items      []MonthlyExpenseSummaryItem `json:"items"`
	GrandTotal float64                     `json:"grand_total"`
}

func toResponse(e models.Expense, loc *time.Location) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Date:        period.DayKey(e.Date, loc),
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
	}
}

// NormalizeCategory keeps categories comparable without losing the user's casing.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return period.StartOfDay(time.Now(), loc).UTC(), nil
	}
	d, err := period.ParseDay(s, loc)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return d.UTC(), nil
}

func loadExpense(c *fiber.Ctx) (models.Expense, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return models.Expense{}, fiber.NewError(fiber.StatusBadRequest, "Invalid expense id")
	}
	var exp models.Expense
	if err := database.DB.First(&exp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Expense{}, fiber.NewError(fiber.StatusNotFound, "Expense not found")
		}
		return models.Expense{}, fiber.NewError(fiber.StatusInternalServerError, "Expense could not be loaded")
	}
	return exp, nil
}

// POST /api/expenses
func CreateExpenseHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Description = strings.TrimSpace(body.Description)
		body.Category = NormalizeCategory(body.Category)
		if body.Description == "" || body.Category == "" {
			return fiber.NewError(fiber.StatusBadRequest, "description and category are required")
		}
		if body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
		}

		d, err := parseDate(body.Date, loc)
		if err != nil {
			return err
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		exp := models.Expense{
			Description: body.Description,
			Amount:      body.Amount,
			Category:    body.Category,
			Date:        d,
			CreatedBy:   userID,
		}
		if err := database.DB.Create(&exp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Expense could not be saved")
		}
		metrics.ExpensesTotal.Inc()

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityExpense,
			EntityID:    exp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Expense added: %s %.2f", exp.Category, exp.Amount),
			After:       exp,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(exp, loc))
	}
}

// GET /api/expenses?from=...&to=...&category=...
func ListExpensesHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := period.Days(c.Query("from"), c.Query("to"), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dbq := database.DB.Model(&models.Expense{})
		if from != nil {
			dbq = dbq.Where("date >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("date < ?", *to)
		}
		if cat := NormalizeCategory(c.Query("category")); cat != "" {
			dbq = dbq.Where("LOWER(category) = ?", strings.ToLower(cat))
		}

		var rows []models.Expense
		if err := dbq.Order("date asc, id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Expenses could not be listed")
		}

		resp := make([]ExpenseResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toResponse(r, loc))
		}
		return c.JSON(resp)
	}
}

// PUT /api/expenses/:id (admin)
func UpdateExpenseHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := loadExpense(c)
		if err != nil {
			return err
		}

		var body UpdateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		before := exp
		if body.Description != nil {
			exp.Description = strings.TrimSpace(*body.Description)
		}
		if body.Category != nil {
			exp.Category = NormalizeCategory(*body.Category)
		}
		if body.Amount != nil {
			exp.Amount = *body.Amount
		}
		if body.Date != nil {
			d, err := parseDate(*body.Date, loc)
			if err != nil {
				return err
			}
			exp.Date = d
		}
		if exp.Description == "" || exp.Category == "" {
			return fiber.NewError(fiber.StatusBadRequest, "description and category must not be empty")
		}
		if exp.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
		}

		if err := database.DB.Save(&exp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Expense could not be updated")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityExpense,
			EntityID:    exp.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Expense updated: %s %.2f", exp.Category, exp.Amount),
			Before:      before,
			After:       exp,
		})

		return c.JSON(toResponse(exp, loc))
	}
}

// DELETE /api/expenses/:id (admin)
func DeleteExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := loadExpense(c)
		if err != nil {
			return err
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Expense{}, exp.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Expense could not be deleted")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityExpense,
			EntityID:    exp.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Expense deleted: %s %.2f", exp.Category, exp.Amount),
			Before:      exp,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/expenses/categories lists the categories in use.
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cats []string
		if err := database.DB.Model(&models.Expense{}).Distinct("category").Pluck("category", &cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Categories could not be listed")
		}
		sort.Strings(cats)
		if cats == nil {
			cats = []string{}
		}
		return c.JSON(cats)
	}
}

// GET /api/expenses/summary/monthly?year=2026&month=3
func MonthlyExpenseSummaryHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year := c.QueryInt("year")
		month := c.QueryInt("month")
		r, err := period.Month(year, month, loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "year and month are required and must be valid")
		}

		items, total, err := SummarizeByCategory(database.DB, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Summary could not be calculated")
		}

		return c.JSON(MonthlyExpenseSummaryResponse{
			Year:       year,
			Month:      month,
			Items:      items,
			GrandTotal: total,
		})
	}
}

// SummarizeByCategory totals expenses dated within r.
func SummarizeByCategory(db *gorm.DB, r period.Range) ([]MonthlyExpenseSummaryItem, float64, error) {
	type row struct {
		Category string  `gorm:"column:category"`
		Total    float64 `gorm:"column:total"`
		Count    int     `gorm:"column:cnt"`
	}
	var rows []row
	if err := db.Model(&models.Expense{}).
		Select("category, SUM(amount) AS total, COUNT(*) AS cnt").
		Where("date >= ? AND date < ?", r.From, r.To).
		Group("category").
		Order("category asc").
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]MonthlyExpenseSummaryItem, 0, len(rows))
	var total float64
	for _, r := range rows {
		items = append(items, MonthlyExpenseSummaryItem{Category: r.Category, Total: r.Total, Count: r.Count})
		total += r.Total
	}
	return items, total, nil
}

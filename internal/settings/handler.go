package settings

import (
	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SettingsRequest struct {
	VehiclePrices map[string]float64 `json:"vehicle_prices"`
	BusinessNames []string           `json:"business_names"`
}

type SettingsResponse struct {
	VehiclePrices map[string]float64 `json:"vehicle_prices"`
	VehicleTypes  []string           `json:"vehicle_types"`
	BusinessNames []string           `json:"business_names"`
	UpdatedAt     string             `json:"updated_at"`
}

func toResponse(s models.Setting) SettingsResponse {
	return SettingsResponse{
		VehiclePrices: s.VehiclePrices,
		VehicleTypes:  VehicleTypes(s),
		BusinessNames: s.BusinessNames,
		UpdatedAt:     s.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/settings
func GetSettingsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}
		return c.JSON(toResponse(s))
	}
}

// PUT /api/settings replaces the whole settings document.
func UpdateSettingsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SettingsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		prices, names, err := Sanitize(body.VehiclePrices, body.BusinessNames)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		before, err := Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}

		after := before
		after.VehiclePrices = prices
		after.BusinessNames = names
		after.UpdatedBy = userID
		if err := database.DB.Save(&after).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be saved")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntitySettings,
			EntityID:    after.ID,
			Action:      models.AuditActionUpdate,
			Description: "Settings replaced",
			Before:      toResponse(before),
			After:       toResponse(after),
		})

		return c.JSON(toResponse(after))
	}
}

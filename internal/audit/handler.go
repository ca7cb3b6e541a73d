package audit

import (
	"errors"
	"fmt"

	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02 15:04:05"

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

// GET /api/audit-logs?entity_type=record&entity_id=1&user_id=2&limit=100
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if s := c.Query("entity_id"); s != "" {
			var eid uint
			if _, err := fmt.Sscan(s, &eid); err != nil || eid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "entity_id is invalid")
			}
			dbq = dbq.Where("entity_id = ?", eid)
		}
		if s := c.Query("user_id"); s != "" {
			var uid uint
			if _, err := fmt.Sscan(s, &uid); err != nil || uid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id is invalid")
			}
			dbq = dbq.Where("user_id = ?", uid)
		}

		limit := c.QueryInt("limit", 200)
		if limit < 1 || limit > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 1000")
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			var undoneAt *string
			if l.UndoneAt != nil {
				formatted := l.UndoneAt.Format(timeLayout)
				undoneAt = &formatted
			}

			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format(timeLayout),
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				IsUndone:    l.IsUndone,
				UndoneBy:    l.UndoneBy,
				UndoneAt:    undoneAt,
			})
		}

		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := c.ParamsInt("id")
		if err != nil || logID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid log id")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var entry models.AuditLog
		if err := database.DB.First(&entry, "id = ?", logID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Log not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Log could not be loaded")
		}

		if err := UndoLog(uint(logID), userID, userName); err != nil {
			switch {
			case errors.Is(err, ErrAlreadyUndone):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, ErrNotUndoable), errors.Is(err, ErrUnknownEntity):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"message": "Action undone",
		})
	}
}

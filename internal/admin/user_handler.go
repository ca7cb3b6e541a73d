package admin

import (
	"errors"
	"fmt"
	"strings"

	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"` // defaults to operator
}

type ChangePasswordRequest struct {
	Password string `json:"password"`
}

type UserListItem struct {
	auth.UserResponse
	CreatedAt string `json:"created_at"`
}

func loadUser(c *fiber.Ctx) (models.User, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return models.User{}, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return models.User{}, fiber.NewError(fiber.StatusInternalServerError, "User could not be loaded")
	}
	return user, nil
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Username = auth.NormalizeUsername(body.Username)
		if body.Name == "" || body.Username == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and username are required")
		}
		if body.Role == "" {
			body.Role = models.RoleOperator
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "role must be admin or operator")
		}

		var taken int64
		if err := database.DB.Model(&models.User{}).Where("username = ?", body.Username).Count(&taken).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be checked")
		}
		if taken > 0 {
			return fiber.NewError(fiber.StatusConflict, "Username is already taken")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return err
		}

		actorID, actorName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     body.Username,
			Name:         body.Name,
			PasswordHash: hash,
			Role:         body.Role,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
		}

		audit.Record(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  models.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("User %s created as %s", user.Username, user.Role),
			After:       auth.NewUserResponse(&user),
		})

		return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(&user))
	}
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("username asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Users could not be listed")
		}

		resp := make([]UserListItem, 0, len(users))
		for i := range users {
			resp = append(resp, UserListItem{
				UserResponse: auth.NewUserResponse(&users[i]),
				CreatedAt:    users[i].CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/users/:id/password
func ChangePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := loadUser(c)
		if err != nil {
			return err
		}

		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return err
		}

		actorID, actorName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		if err := database.DB.Model(&user).Update("password_hash", hash).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password could not be changed")
		}

		audit.Record(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  models.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Password changed for %s", user.Username),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := loadUser(c)
		if err != nil {
			return err
		}

		actorID, actorName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if user.ID == actorID {
			return fiber.NewError(fiber.StatusBadRequest, "You cannot delete your own account")
		}

		if err := database.DB.Delete(&models.User{}, user.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be deleted")
		}

		audit.Record(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  models.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("User %s deleted", user.Username),
			Before:      auth.NewUserResponse(&user),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

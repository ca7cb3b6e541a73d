package auth

import (
	"strings"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Username: u.Username, Role: u.Role}
}

// NormalizeUsername is the stored form of a login name.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HashPassword enforces the minimum length and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fiber.NewError(fiber.StatusBadRequest, "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Password could not be hashed")
	}
	return string(hash), nil
}

// POST /api/auth/register-admin, allowed only while no admin exists.
func RegisterAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Username = NormalizeUsername(body.Username)
		body.Name = strings.TrimSpace(body.Name)
		if body.Username == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, username and password are required")
		}

		var count int64
		if err := database.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Users could not be checked")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "An admin already exists")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Name:         body.Name,
			Username:     body.Username,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be created")
		}

		zap.L().Info("admin registered", zap.String("username", user.Username))
		return c.Status(fiber.StatusCreated).JSON(NewUserResponse(&user))
	}
}

func LoginHandler(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var user models.User
		if err := database.DB.Where("username = ?", NormalizeUsername(body.Username)).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong username or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong username or password")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  NewUserResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return c.JSON(NewUserResponse(&user))
	}
}

package handlers

import (
	"strings"

	"github.com/filedesk/backend/internal/middleware"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.FirstName) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email, password and firstName are required")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": user.Email,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"user":  user,
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.First(&user, "email = ?", email).Error; err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.Warn("login_failed", map[string]interface{}{
			"email": email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, currentUser)
}

type updateMeRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	AvatarURL *string `json:"avatarURL"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) != "" {
		currentUser.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		currentUser.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.AvatarURL != nil {
		currentUser.AvatarURL = req.AvatarURL
	}

	if err := h.DB.Save(currentUser).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}
	return utils.Success(c, fiber.StatusOK, currentUser)
}

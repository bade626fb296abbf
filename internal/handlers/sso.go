package handlers

import (
	"fmt"
	"strings"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SSOHandler struct {
	DB       *gorm.DB
	Provider *services.OAuthProviderService
	Cfg      *config.Config
}

func NewSSOHandler(db *gorm.DB, provider *services.OAuthProviderService, cfg *config.Config) *SSOHandler {
	return &SSOHandler{DB: db, Provider: provider, Cfg: cfg}
}

// GetLoginRedirect hands the frontend the provider's consent URL.
func (h *SSOHandler) GetLoginRedirect(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))

	oauthCfg, err := h.Provider.GetOAuthConfig(provider)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.Provider.GenerateState(provider)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating state")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url": oauthCfg.AuthCodeURL(state),
	})
}

// HandleCallback finishes the code flow: validates state, exchanges the
// code, and signs the matching user in, auto-registering on first visit.
func (h *SSOHandler) HandleCallback(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code and state are required")
	}
	if !h.Provider.ConsumeState(state, provider) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid or expired state")
	}

	token, err := h.Provider.ExchangeCode(c.Context(), provider, code)
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, err.Error())
	}

	profile, err := h.Provider.GetUserInfo(c.Context(), provider, token)
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "failed fetching user profile")
	}

	email := strings.ToLower(profile.Email)
	var user models.User
	err = h.DB.First(&user, "email = ?", email).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
		}

		user = models.User{
			Email:        email,
			PasswordHash: fmt.Sprintf("sso:%s", provider),
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			AvatarURL:    profile.AvatarURL,
			Provider:     profile.Provider,
		}
		if err := h.DB.Create(&user).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
		}
		logger.InfoWithUser(user.ID.String(), "sso_user_registered", map[string]interface{}{
			"provider": provider,
			"email":    email,
		})
	}

	jwtToken, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"token": jwtToken,
	})
}

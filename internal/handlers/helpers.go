package handlers

import (
	"errors"

	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/internal/storage"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// fileManagerError maps service errors onto HTTP statuses. Everything the
// core can fail with is user-visible and non-fatal.
func fileManagerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrNotAuthenticated):
		return utils.Error(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrDuplicateName), errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrUpload):
		return utils.Error(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, kvstore.ErrPersistence):
		return utils.Error(c, fiber.StatusInsufficientStorage, err.Error())
	default:
		return utils.Error(c, fiber.StatusInternalServerError, err.Error())
	}
}

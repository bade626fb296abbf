package handlers

import (
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FoldersHandler struct {
	Manager *services.FileManager
}

func NewFoldersHandler(manager *services.FileManager) *FoldersHandler {
	return &FoldersHandler{Manager: manager}
}

type folderRequest struct {
	Name string `json:"name"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	var req folderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	folder, err := h.Manager.CreateFolder(req.Name)
	if err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, h.Manager.Folders())
}

func (h *FoldersHandler) Rename(c *fiber.Ctx) error {
	var req folderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.Manager.RenameFolder(c.Params("id"), req.Name); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"renamed": true})
}

func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	if err := h.Manager.DeleteFolder(c.Params("id")); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

package handlers

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/filedesk/backend/internal/middleware"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type FilesHandler struct {
	Manager *services.FileManager
}

func NewFilesHandler(manager *services.FileManager) *FilesHandler {
	return &FilesHandler{Manager: manager}
}

// Upload takes a multipart file, runs it through the state manager (size
// ceiling, auth, remote upload, persist) and returns the new record.
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	record, err := h.Manager.AddFile(c.Context(), currentUser, filename, contentType, stream, fileHeader.Size)
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, record)
}

// List returns the files of the requested view. A view query parameter
// switches the active category first, mirroring a sidebar click.
func (h *FilesHandler) List(c *fiber.Ctx) error {
	if view := strings.TrimSpace(c.Query("view")); view != "" {
		h.Manager.SetActiveView(view)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"view":  h.Manager.ActiveView(),
		"files": h.Manager.FilteredFiles(),
	})
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	file, ok := h.Manager.FileByID(c.Params("id"))
	if !ok {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}
	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) Counts(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, h.Manager.Counts())
}

func (h *FilesHandler) Usage(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, h.Manager.StorageUsage())
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *FilesHandler) Rename(c *fiber.Ctx) error {
	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.Manager.RenameFile(c.Params("id"), req.Name); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"renamed": true})
}

type moveCategoryRequest struct {
	Category string `json:"category"`
}

func (h *FilesHandler) MoveCategory(c *fiber.Ctx) error {
	var req moveCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.Manager.MoveFile(c.Params("id"), req.Category); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"moved": true})
}

type moveFolderRequest struct {
	FolderID *string `json:"folderId"`
}

func (h *FilesHandler) MoveToFolder(c *fiber.Ctx) error {
	var req moveFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.Manager.MoveFileToFolder(c.Params("id"), req.FolderID); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"moved": true})
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	if err := h.Manager.DeleteFile(c.Params("id")); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *FilesHandler) Restore(c *fiber.Ctx) error {
	if err := h.Manager.RestoreFile(c.Params("id")); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"restored": true})
}

func (h *FilesHandler) Purge(c *fiber.Ctx) error {
	if err := h.Manager.PermanentDeleteFile(c.Context(), c.Params("id")); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"purged": true})
}

func (h *FilesHandler) LastError(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, fiber.Map{"error": h.Manager.LastError()})
}

func (h *FilesHandler) ClearError(c *fiber.Ctx) error {
	h.Manager.ClearError()
	return utils.Success(c, fiber.StatusOK, fiber.Map{"cleared": true})
}

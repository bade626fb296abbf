package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type SharesHandler struct {
	Links   *services.ShareLinkManager
	Manager *services.FileManager
}

func NewSharesHandler(links *services.ShareLinkManager, manager *services.FileManager) *SharesHandler {
	return &SharesHandler{Links: links, Manager: manager}
}

type createLinkRequest struct {
	// TTLHours overrides the default link lifetime when non-zero.
	TTLHours int `json:"ttlHours"`
}

func (h *SharesHandler) CreateLink(c *fiber.Ctx) error {
	// Params strings are backed by fiber's reusable request buffer;
	// this one outlives the request inside the link store, so copy it.
	fileID := strings.Clone(c.Params("id"))
	if _, ok := h.Manager.FileByID(fileID); !ok {
		return utils.Error(c, fiber.StatusNotFound, "file not found")
	}

	var req createLinkRequest
	// The body is optional; an empty one means the default TTL.
	_ = c.BodyParser(&req)

	link, err := h.Links.CreateLink(fileID, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"linkId":    link.LinkID,
		"url":       "/share/" + link.LinkID,
		"expiresAt": link.ExpiresAt,
	})
}

// Resolve serves the public share route. Not-found, expired, and
// file-gone each get their own status so the share page can show the
// right message.
func (h *SharesHandler) Resolve(c *fiber.Ctx) error {
	file, err := h.Links.ResolveLink(c.Params("linkId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLinkNotFound):
			return utils.Error(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrLinkExpired):
			return utils.Error(c, fiber.StatusGone, err.Error())
		case errors.Is(err, services.ErrFileGone):
			return utils.Error(c, fiber.StatusGone, err.Error())
		default:
			return utils.Error(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	return utils.Success(c, fiber.StatusOK, file)
}

package handlers

import (
	"strings"
	"sync"
	"time"

	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProductivityHandler covers the small sidecar widgets: tasks, calendar
// events, preferences, and the notification center.
type ProductivityHandler struct {
	mu     sync.Mutex
	Store  *kvstore.Store
	Center *services.NotificationCenter
}

func NewProductivityHandler(store *kvstore.Store, center *services.NotificationCenter) *ProductivityHandler {
	return &ProductivityHandler{Store: store, Center: center}
}

type taskRequest struct {
	Text string `json:"text"`
}

func (h *ProductivityHandler) CreateTask(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return utils.Error(c, fiber.StatusBadRequest, "text is required")
	}

	task := models.Task{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	h.mu.Lock()
	tasks := append([]models.Task{task}, h.Store.LoadTasks()...)
	err := h.Store.SaveTasks(tasks)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, task)
}

func (h *ProductivityHandler) ListTasks(c *fiber.Ctx) error {
	h.mu.Lock()
	tasks := h.Store.LoadTasks()
	h.mu.Unlock()
	return utils.Success(c, fiber.StatusOK, tasks)
}

func (h *ProductivityHandler) ToggleTask(c *fiber.Ctx) error {
	id := c.Params("id")

	h.mu.Lock()
	defer h.mu.Unlock()

	tasks := h.Store.LoadTasks()
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Completed = !tasks[i].Completed
			if err := h.Store.SaveTasks(tasks); err != nil {
				return fileManagerError(c, err)
			}
			return utils.Success(c, fiber.StatusOK, tasks[i])
		}
	}
	return utils.Error(c, fiber.StatusNotFound, "task not found")
}

func (h *ProductivityHandler) DeleteTask(c *fiber.Ctx) error {
	id := c.Params("id")

	h.mu.Lock()
	defer h.mu.Unlock()

	tasks := h.Store.LoadTasks()
	kept := tasks[:0]
	for _, task := range tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	if err := h.Store.SaveTasks(kept); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *ProductivityHandler) ListEvents(c *fiber.Ctx) error {
	h.mu.Lock()
	events := h.Store.LoadEvents()
	h.mu.Unlock()
	return utils.Success(c, fiber.StatusOK, events)
}

type eventRequest struct {
	Message string `json:"message"`
}

// PutEvent sets the event for one day, keyed "YYYY-MM-DD".
func (h *ProductivityHandler) PutEvent(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	h.mu.Lock()
	events := h.Store.LoadEvents()
	events[date] = models.CalendarEvent{Message: req.Message}
	err := h.Store.SaveEvents(events)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"date": date})
}

func (h *ProductivityHandler) DeleteEvent(c *fiber.Ctx) error {
	date := c.Params("date")

	h.mu.Lock()
	events := h.Store.LoadEvents()
	delete(events, date)
	err := h.Store.SaveEvents(events)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *ProductivityHandler) GetPreferences(c *fiber.Ctx) error {
	h.mu.Lock()
	prefs := h.Store.LoadPreferences()
	h.mu.Unlock()
	return utils.Success(c, fiber.StatusOK, prefs)
}

func (h *ProductivityHandler) PutPreferences(c *fiber.Ctx) error {
	var prefs models.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if prefs.Theme != "light" && prefs.Theme != "dark" {
		return utils.Error(c, fiber.StatusBadRequest, "theme must be light or dark")
	}

	h.mu.Lock()
	err := h.Store.SavePreferences(prefs)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, prefs)
}

func (h *ProductivityHandler) ListNotifications(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, h.Center.List())
}

func (h *ProductivityHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	if err := h.Center.MarkAllRead(); err != nil {
		return fileManagerError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"read": true})
}

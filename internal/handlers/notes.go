package handlers

import (
	"sort"
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

type NotesHandler struct {
	mu       sync.Mutex
	Store    *kvstore.Store
	Notifier services.Notifier
}

func NewNotesHandler(store *kvstore.Store, notifier services.Notifier) *NotesHandler {
	return &NotesHandler{Store: store, Notifier: notifier}
}

type noteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Color   string   `json:"color"`
}

func (h *NotesHandler) Create(c *fiber.Ctx) error {
	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled"
	}
	color := req.Color
	if color == "" {
		color = "#ffffff"
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	note := models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   req.Content,
		Tags:      tags,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	h.mu.Lock()
	notes := append([]models.Note{note}, h.Store.LoadNotes()...)
	err := h.Store.SaveNotes(notes)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	h.Notifier.Notify(models.NotificationSuccess, "Note created")
	return utils.Success(c, fiber.StatusCreated, note)
}

// List returns live notes, pinned first then most recently updated,
// optionally narrowed by a search query and a tag filter.
func (h *NotesHandler) List(c *fiber.Ctx) error {
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	tag := strings.TrimSpace(c.Query("tag"))

	h.mu.Lock()
	notes := h.Store.LoadNotes()
	h.mu.Unlock()

	filtered := []models.Note{}
	for _, note := range notes {
		if note.IsDeleted {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(note.Title), query) &&
			!strings.Contains(strings.ToLower(note.Content), query) {
			continue
		}
		if tag != "" && !containsTag(note.Tags, tag) {
			continue
		}
		filtered = append(filtered, note)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].IsPinned != filtered[j].IsPinned {
			return filtered[i].IsPinned
		}
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})

	return utils.Success(c, fiber.StatusOK, filtered)
}

func (h *NotesHandler) Trash(c *fiber.Ctx) error {
	h.mu.Lock()
	notes := h.Store.LoadNotes()
	h.mu.Unlock()

	deleted := []models.Note{}
	for _, note := range notes {
		if note.IsDeleted {
			deleted = append(deleted, note)
		}
	}
	return utils.Success(c, fiber.StatusOK, deleted)
}

func (h *NotesHandler) Update(c *fiber.Ctx) error {
	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	found, err := h.mutate(c.Params("id"), func(note *models.Note) {
		if strings.TrimSpace(req.Title) != "" {
			note.Title = req.Title
		}
		note.Content = req.Content
		if req.Tags != nil {
			note.Tags = req.Tags
		}
		if req.Color != "" {
			note.Color = req.Color
		}
		note.UpdatedAt = time.Now().UTC()
	})
	if err != nil {
		return fileManagerError(c, err)
	}
	if !found {
		return utils.Error(c, fiber.StatusNotFound, "note not found")
	}

	h.Notifier.Notify(models.NotificationSuccess, "Note saved")
	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": true})
}

func (h *NotesHandler) TogglePin(c *fiber.Ctx) error {
	found, err := h.mutate(c.Params("id"), func(note *models.Note) {
		note.IsPinned = !note.IsPinned
	})
	if err != nil {
		return fileManagerError(c, err)
	}
	if !found {
		return utils.Error(c, fiber.StatusNotFound, "note not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"toggled": true})
}

func (h *NotesHandler) Delete(c *fiber.Ctx) error {
	found, err := h.mutate(c.Params("id"), func(note *models.Note) {
		note.IsDeleted = true
	})
	if err != nil {
		return fileManagerError(c, err)
	}
	if !found {
		return utils.Error(c, fiber.StatusNotFound, "note not found")
	}

	h.Notifier.Notify(models.NotificationInfo, "Note moved to trash")
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *NotesHandler) Restore(c *fiber.Ctx) error {
	found, err := h.mutate(c.Params("id"), func(note *models.Note) {
		note.IsDeleted = false
	})
	if err != nil {
		return fileManagerError(c, err)
	}
	if !found {
		return utils.Error(c, fiber.StatusNotFound, "note not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"restored": true})
}

func (h *NotesHandler) Purge(c *fiber.Ctx) error {
	id := c.Params("id")

	h.mu.Lock()
	notes := h.Store.LoadNotes()
	kept := notes[:0]
	for _, note := range notes {
		if note.ID != id {
			kept = append(kept, note)
		}
	}
	err := h.Store.SaveNotes(kept)
	h.mu.Unlock()
	if err != nil {
		return fileManagerError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"purged": true})
}

func (h *NotesHandler) Tags(c *fiber.Ctx) error {
	h.mu.Lock()
	notes := h.Store.LoadNotes()
	h.mu.Unlock()

	seen := map[string]bool{}
	tags := []string{}
	for _, note := range notes {
		if note.IsDeleted {
			continue
		}
		for _, tag := range note.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return utils.Success(c, fiber.StatusOK, tags)
}

// Stats summarizes live notes: totals, the longest note, and per-tag
// counts for the dashboard widgets.
func (h *NotesHandler) Stats(c *fiber.Ctx) error {
	h.mu.Lock()
	notes := h.Store.LoadNotes()
	h.mu.Unlock()

	totalNotes := 0
	totalWords := 0
	longestTitle := ""
	longestLength := 0
	notesByTag := map[string]int{}

	for _, note := range notes {
		if note.IsDeleted {
			continue
		}
		totalNotes++
		if trimmed := strings.TrimSpace(note.Content); trimmed != "" {
			totalWords += len(strings.Fields(trimmed))
		}
		if len(note.Content) > longestLength {
			longestLength = len(note.Content)
			longestTitle = note.Title
		}
		for _, tag := range note.Tags {
			notesByTag[tag]++
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"totalNotes": totalNotes,
		"totalWords": totalWords,
		"longestNote": fiber.Map{
			"title":  longestTitle,
			"length": longestLength,
		},
		"notesByTag": notesByTag,
	})
}

// mutate applies fn to the note with the given id and persists. Found is
// false when the id is unknown.
func (h *NotesHandler) mutate(id string, fn func(*models.Note)) (found bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	notes := h.Store.LoadNotes()
	for i := range notes {
		if notes[i].ID == id {
			fn(&notes[i])
			return true, h.Store.SaveNotes(notes)
		}
	}
	return false, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

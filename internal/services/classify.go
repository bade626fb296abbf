package services

import (
	"strings"

	"github.com/filedesk/backend/internal/models"
)

var documentHints = []string{"pdf", "text", "word", "document", "msword"}

// Classify maps a file to its navigation bucket. Trash wins over
// everything, an explicit override wins over inference, and anything the
// mime heuristics don't recognize lands in others. Pure and total.
func Classify(f models.FileRecord) models.Category {
	if f.IsDeleted {
		return models.CategoryTrash
	}
	if f.CategoryOverride != nil && *f.CategoryOverride != "" {
		return models.Category(*f.CategoryOverride)
	}

	mimeType := strings.ToLower(f.MimeType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.CategoryImages
	case strings.HasPrefix(mimeType, "video/"):
		return models.CategoryVideos
	case strings.HasPrefix(mimeType, "audio/"):
		return models.CategoryMusic
	}

	for _, hint := range documentHints {
		if strings.Contains(mimeType, hint) {
			return models.CategoryDocuments
		}
	}
	return models.CategoryOthers
}

package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/pkg/logger"
)

const (
	kilobyte = 1024
	megabyte = 1024 * 1024
	gigabyte = 1024 * 1024 * 1024
)

// ParseSizeLabel converts a human-readable size label back to bytes.
// Unparsable labels contribute 0 so quota math degrades to undercounting
// instead of failing.
func ParseSizeLabel(label string) int64 {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0
	}

	num, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || num < 0 {
		logger.Warn("size_label_unparsable", map[string]interface{}{
			"label": label,
		})
		return 0
	}

	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, "GB"):
		num *= gigabyte
	case strings.Contains(upper, "MB"):
		num *= megabyte
	case strings.Contains(upper, "KB"):
		num *= kilobyte
	}
	return int64(num)
}

// FormatSizeLabel renders a byte count the way records store it.
func FormatSizeLabel(bytes int64) string {
	switch {
	case bytes < kilobyte:
		return fmt.Sprintf("%d B", bytes)
	case bytes < megabyte:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kilobyte)
	case bytes < gigabyte:
		return fmt.Sprintf("%.2f MB", float64(bytes)/megabyte)
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gigabyte)
	}
}

// Usage sums the byte-equivalent of every live file's size label. Trash
// does not count against the quota. Percent is clamped to [0,100].
func Usage(files []models.FileRecord, quotaBytes int64) models.StorageUsage {
	var usedBytes int64
	for _, f := range files {
		if f.IsDeleted {
			continue
		}
		usedBytes += ParseSizeLabel(f.SizeLabel)
	}

	percent := 0.0
	if quotaBytes > 0 {
		percent = float64(usedBytes) / float64(quotaBytes) * 100
		if percent > 100 {
			percent = 100
		}
	}

	return models.StorageUsage{
		UsedBytes:  usedBytes,
		TotalBytes: quotaBytes,
		Percent:    percent,
	}
}

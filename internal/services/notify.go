package services

import (
	"strings"
	"sync"
	"time"

	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
	"github.com/google/uuid"
)

// Notifier delivers user-facing notifications. Callers fire and forget.
type Notifier interface {
	Notify(notificationType models.NotificationType, message string)
}

// maxStoredNotifications caps the persisted notification center.
const maxStoredNotifications = 50

type Subscriber func(models.Notification)

// NotificationCenter is an explicit observer registry owned by the
// application shell: it fans notifications out to subscribers and keeps a
// capped, persisted history. Preferences can silence it entirely or per
// category.
type NotificationCenter struct {
	mu          sync.Mutex
	store       *kvstore.Store
	subscribers []Subscriber
}

func NewNotificationCenter(store *kvstore.Store) *NotificationCenter {
	return &NotificationCenter{store: store}
}

func (n *NotificationCenter) Subscribe(fn Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

func (n *NotificationCenter) Notify(notificationType models.NotificationType, message string) {
	prefs := n.store.LoadPreferences()
	if !prefs.NotificationsEnabled {
		return
	}
	if silenced(prefs.NotifPrefs, notificationType, message) {
		return
	}

	notification := models.Notification{
		ID:        uuid.NewString(),
		Type:      notificationType,
		Message:   message,
		Priority:  notificationType == models.NotificationError || notificationType == models.NotificationWarning,
		CreatedAt: time.Now().UTC(),
	}

	n.mu.Lock()
	stored := n.store.LoadNotifications()
	stored = append([]models.Notification{notification}, stored...)
	if len(stored) > maxStoredNotifications {
		stored = stored[:maxStoredNotifications]
	}
	// History is best-effort; a full store must not block the operation
	// that produced the notification.
	_ = n.store.SaveNotifications(stored)
	subscribers := make([]Subscriber, len(n.subscribers))
	copy(subscribers, n.subscribers)
	n.mu.Unlock()

	for _, fn := range subscribers {
		fn(notification)
	}
}

func (n *NotificationCenter) List() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.LoadNotifications()
}

func (n *NotificationCenter) MarkAllRead() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	stored := n.store.LoadNotifications()
	for i := range stored {
		stored[i].Read = true
	}
	return n.store.SaveNotifications(stored)
}

// silenced maps a notification to a preference category the way the
// settings screen groups them.
func silenced(prefs map[string]bool, notificationType models.NotificationType, message string) bool {
	if prefs == nil {
		return false
	}

	category := "activity"
	lower := strings.ToLower(message)
	switch {
	case notificationType == models.NotificationSuccess || strings.Contains(lower, "saved"):
		category = "successNotes"
	case notificationType == models.NotificationWarning || notificationType == models.NotificationError || strings.Contains(lower, "storage"):
		category = "storageAlerts"
	case strings.Contains(lower, "password") || strings.Contains(lower, "security"):
		category = "security"
	}

	enabled, ok := prefs[category]
	return ok && !enabled
}

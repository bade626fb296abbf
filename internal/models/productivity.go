package models

import "time"

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color"`
	IsPinned  bool      `json:"isPinned"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// CalendarEvent is keyed by its "YYYY-MM-DD" date in the event map.
type CalendarEvent struct {
	Message string `json:"message"`
}

type Preferences struct {
	Theme                string `json:"theme"`
	DisplayName          string `json:"displayName"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	// NotifPrefs toggles individual notification categories
	// (storageAlerts, successNotes, security, activity).
	NotifPrefs map[string]bool `json:"notifPrefs,omitempty"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "light",
		NotificationsEnabled: true,
	}
}

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is one entry of the persisted notification center.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	Priority  bool             `json:"priority"`
	CreatedAt time.Time        `json:"createdAt"`
}

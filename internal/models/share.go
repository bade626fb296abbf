package models

import "time"

// ShareLink grants time-limited unauthenticated access to one file. Links
// are never mutated after creation and expired entries are not purged.
type ShareLink struct {
	LinkID    string     `json:"linkId"`
	FileID    string     `json:"fileId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *ShareLink) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Package kvstore is the local persistent store: namespaced keys holding
// JSON documents, backed by a single table so the whole application state
// travels with one database file.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPersistence marks a failed write to the local store. The in-memory
// state stays correct for the current session but will not survive a
// restart, so callers surface this to the user instead of dropping it.
var ErrPersistence = errors.New("local store write failed")

const (
	KeyFiles         = "filedesk:files"
	KeyFolders       = "filedesk:folders"
	KeyShareLinks    = "filedesk:shares"
	KeyNotes         = "filedesk:notes"
	KeyTasks         = "filedesk:tasks"
	KeyEvents        = "filedesk:calendar"
	KeyPreferences   = "filedesk:preferences"
	KeyNotifications = "filedesk:notifications"
)

type Entry struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// load unmarshals the value under key into out. A missing key or corrupt
// value leaves out untouched and returns false; it never errors, so every
// consumer starts from its zero state on a fresh or damaged store.
func (s *Store) load(key string, out interface{}) bool {
	var entry Entry
	if err := s.db.First(&entry, "key = ?", key).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("kvstore_load_failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return false
	}

	if err := json.Unmarshal([]byte(entry.Value), out); err != nil {
		logger.Warn("kvstore_corrupt_value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

func (s *Store) save(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrPersistence, key, err)
	}

	entry := Entry{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		logger.Error("kvstore_save_failed", err, map[string]interface{}{
			"key":  key,
			"size": len(data),
		})
		return fmt.Errorf("%w: %s: %v", ErrPersistence, key, err)
	}
	return nil
}

func (s *Store) LoadFiles() []models.FileRecord {
	files := []models.FileRecord{}
	s.load(KeyFiles, &files)
	return files
}

func (s *Store) SaveFiles(files []models.FileRecord) error {
	return s.save(KeyFiles, files)
}

func (s *Store) LoadFolders() []models.FolderRecord {
	folders := []models.FolderRecord{}
	s.load(KeyFolders, &folders)
	return folders
}

func (s *Store) SaveFolders(folders []models.FolderRecord) error {
	return s.save(KeyFolders, folders)
}

func (s *Store) LoadShareLinks() []models.ShareLink {
	links := []models.ShareLink{}
	s.load(KeyShareLinks, &links)
	return links
}

func (s *Store) SaveShareLinks(links []models.ShareLink) error {
	return s.save(KeyShareLinks, links)
}

func (s *Store) LoadNotes() []models.Note {
	notes := []models.Note{}
	s.load(KeyNotes, &notes)
	return notes
}

func (s *Store) SaveNotes(notes []models.Note) error {
	return s.save(KeyNotes, notes)
}

func (s *Store) LoadTasks() []models.Task {
	tasks := []models.Task{}
	s.load(KeyTasks, &tasks)
	return tasks
}

func (s *Store) SaveTasks(tasks []models.Task) error {
	return s.save(KeyTasks, tasks)
}

func (s *Store) LoadEvents() map[string]models.CalendarEvent {
	events := map[string]models.CalendarEvent{}
	s.load(KeyEvents, &events)
	return events
}

func (s *Store) SaveEvents(events map[string]models.CalendarEvent) error {
	return s.save(KeyEvents, events)
}

func (s *Store) LoadPreferences() models.Preferences {
	prefs := models.DefaultPreferences()
	s.load(KeyPreferences, &prefs)
	return prefs
}

func (s *Store) SavePreferences(prefs models.Preferences) error {
	return s.save(KeyPreferences, prefs)
}

func (s *Store) LoadNotifications() []models.Notification {
	notifications := []models.Notification{}
	s.load(KeyNotifications, &notifications)
	return notifications
}

func (s *Store) SaveNotifications(notifications []models.Notification) error {
	return s.save(KeyNotifications, notifications)
}

package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/internal/storage"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/google/uuid"
)

// ObjectStorage is the remote blob store the manager uploads to. Satisfied
// by storage.MinIOClient; tests substitute a recording double.
type ObjectStorage interface {
	Upload(ctx context.Context, userID, filename string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	Delete(ctx context.Context, objectName string) error
}

// FileManager owns the canonical in-memory file and folder collections and
// every mutation over them. One instance per process; all access goes
// through its mutex, which makes the store boundary last-writer-wins by
// construction. Derived views (counts, filtered list, usage) are
// recomputed from scratch on every read, never maintained incrementally.
type FileManager struct {
	mu       sync.Mutex
	store    *kvstore.Store
	objects  ObjectStorage
	notifier Notifier
	limits   config.LimitsConfig

	files      []models.FileRecord
	folders    []models.FolderRecord
	activeView string
	lastErr    string
}

func NewFileManager(store *kvstore.Store, objects ObjectStorage, notifier Notifier, limits config.LimitsConfig) *FileManager {
	return &FileManager{
		store:      store,
		objects:    objects,
		notifier:   notifier,
		limits:     limits,
		files:      store.LoadFiles(),
		folders:    store.LoadFolders(),
		activeView: models.ViewAll,
	}
}

// newRecordID returns a time-ordered unique id so "recent" sorts fall out
// of id order.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (m *FileManager) notify(notificationType models.NotificationType, message string) {
	if m.notifier != nil {
		m.notifier.Notify(notificationType, message)
	}
}

// AddFile validates, uploads the blob, then records and persists the new
// file. Validation failures and upload failures leave the collection
// untouched; a failed local persist keeps the in-memory record (correct
// for this session, lost on restart) and surfaces the error.
func (m *FileManager) AddFile(ctx context.Context, principal *models.User, filename, contentType string, reader io.Reader, size int64) (*models.FileRecord, error) {
	m.mu.Lock()
	m.lastErr = ""
	m.mu.Unlock()

	if size > m.limits.MaxFileBytes {
		err := fmt.Errorf("%w: limit is %s", ErrFileTooLarge, FormatSizeLabel(m.limits.MaxFileBytes))
		m.setError(err.Error())
		m.notify(models.NotificationWarning, fmt.Sprintf("File too large (max %s)", FormatSizeLabel(m.limits.MaxFileBytes)))
		return nil, err
	}

	if principal == nil {
		m.setError(ErrNotAuthenticated.Error())
		return nil, ErrNotAuthenticated
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// The upload happens outside the lock: unrelated operations stay
	// responsive while the network call is in flight, and the record is
	// only inserted once the blob is durable.
	uploaded, err := m.objects.Upload(ctx, principal.ID.String(), filename, reader, size, contentType)
	if err != nil {
		m.setError(err.Error())
		m.notify(models.NotificationError, fmt.Sprintf("Failed to upload %q", filename))
		return nil, err
	}

	record := models.FileRecord{
		ID:          newRecordID(),
		Name:        filename,
		MimeType:    contentType,
		SizeLabel:   FormatSizeLabel(size),
		CreatedDate: time.Now().UTC().Format("2006-01-02"),
		RemoteURL:   uploaded.PublicURL,
		RemotePath:  uploaded.Path,
		OwnerID:     principal.ID.String(),
	}

	m.mu.Lock()
	m.files = append([]models.FileRecord{record}, m.files...)
	persistErr := m.store.SaveFiles(m.files)
	if persistErr != nil {
		m.lastErr = persistErr.Error()
	}
	m.mu.Unlock()

	if persistErr != nil {
		m.notify(models.NotificationError, "Could not save: local storage is full")
		return &record, persistErr
	}

	logger.InfoWithUser(record.OwnerID, "file_added", map[string]interface{}{
		"file_id":     record.ID,
		"file_name":   record.Name,
		"size_label":  record.SizeLabel,
		"mime_type":   record.MimeType,
		"remote_path": record.RemotePath,
	})
	m.notify(models.NotificationSuccess, fmt.Sprintf("File %q uploaded successfully", filename))
	return &record, nil
}

// DeleteFile soft-deletes. Unknown or already-deleted ids are a no-op.
func (m *FileManager) DeleteFile(id string) error {
	m.mu.Lock()
	changed := false
	var err error
	for i := range m.files {
		if m.files[i].ID == id && !m.files[i].IsDeleted {
			m.files[i].IsDeleted = true
			changed = true
			err = m.persistFilesLocked()
			break
		}
	}
	m.mu.Unlock()

	if changed && err == nil {
		m.notify(models.NotificationInfo, "File moved to trash")
	}
	return err
}

// RestoreFile clears the soft-delete flag. Idempotent.
func (m *FileManager) RestoreFile(id string) error {
	m.mu.Lock()
	changed := false
	var err error
	for i := range m.files {
		if m.files[i].ID == id && m.files[i].IsDeleted {
			m.files[i].IsDeleted = false
			changed = true
			err = m.persistFilesLocked()
			break
		}
	}
	m.mu.Unlock()

	if changed && err == nil {
		m.notify(models.NotificationSuccess, "File restored")
	}
	return err
}

// PermanentDeleteFile removes the record and issues a best-effort
// compensating delete of the remote object so permanently deleted files
// do not orphan storage. The record is gone regardless of the remote
// call's outcome.
func (m *FileManager) PermanentDeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	var remotePath string
	found := false
	kept := m.files[:0]
	for _, f := range m.files {
		if f.ID == id {
			found = true
			remotePath = f.RemotePath
			continue
		}
		kept = append(kept, f)
	}
	m.files = kept

	var persistErr error
	if found {
		persistErr = m.persistFilesLocked()
	}
	m.mu.Unlock()

	if !found {
		return nil
	}

	if remotePath != "" {
		if err := m.objects.Delete(ctx, remotePath); err != nil {
			logger.Warn("remote_object_delete_failed", map[string]interface{}{
				"file_id":     id,
				"remote_path": remotePath,
				"error":       err.Error(),
			})
		}
	}

	if persistErr != nil {
		return persistErr
	}
	m.notify(models.NotificationError, "File permanently deleted")
	return nil
}

// RenameFile replaces the display name. A name that trims to empty is a
// no-op.
func (m *FileManager) RenameFile(id, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.files {
		if m.files[i].ID == id {
			m.files[i].Name = newName
			return m.persistFilesLocked()
		}
	}
	return nil
}

// MoveFile sets the category override. The value is taken verbatim; the
// caller owns keeping it inside the classifier's vocabulary.
func (m *FileManager) MoveFile(id, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.files {
		if m.files[i].ID == id {
			m.files[i].CategoryOverride = &category
			return m.persistFilesLocked()
		}
	}
	return nil
}

// MoveFileToFolder assigns folder membership, nil meaning unfiled. The
// folder id is not validated; dangling references read as unfiled because
// downstream lookups fail safe.
func (m *FileManager) MoveFileToFolder(fileID string, folderID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.files {
		if m.files[i].ID == fileID {
			m.files[i].FolderID = folderID
			return m.persistFilesLocked()
		}
	}
	return nil
}

func (m *FileManager) CreateFolder(name string) (*models.FolderRecord, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		m.setError(ErrValidation.Error())
		return nil, ErrValidation
	}

	m.mu.Lock()
	if m.folderNameTakenLocked(trimmed, "") {
		m.lastErr = ErrDuplicateName.Error()
		m.mu.Unlock()
		return nil, ErrDuplicateName
	}

	folder := models.FolderRecord{
		ID:        newRecordID(),
		Name:      trimmed,
		CreatedAt: time.Now().UTC(),
	}
	m.folders = append(m.folders, folder)
	err := m.store.SaveFolders(m.folders)
	if err != nil {
		m.lastErr = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		return &folder, err
	}
	m.notify(models.NotificationSuccess, fmt.Sprintf("Folder %q created", trimmed))
	return &folder, nil
}

func (m *FileManager) RenameFolder(id, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		m.setError(ErrValidation.Error())
		return ErrValidation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.folderNameTakenLocked(trimmed, id) {
		m.lastErr = ErrDuplicateName.Error()
		return ErrDuplicateName
	}

	for i := range m.folders {
		if m.folders[i].ID == id {
			m.folders[i].Name = trimmed
			if err := m.store.SaveFolders(m.folders); err != nil {
				m.lastErr = err.Error()
				return err
			}
			return nil
		}
	}
	return nil
}

// DeleteFolder removes the folder and unfiles every file that referenced
// it. If the folder was the active view, the view falls back to "all".
func (m *FileManager) DeleteFolder(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.folders[:0]
	found := false
	for _, f := range m.folders {
		if f.ID == id {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	m.folders = kept
	if !found {
		return nil
	}

	for i := range m.files {
		if m.files[i].FolderID != nil && *m.files[i].FolderID == id {
			m.files[i].FolderID = nil
		}
	}

	if m.activeView == models.FolderViewPrefix+id {
		m.activeView = models.ViewAll
	}

	if err := m.store.SaveFolders(m.folders); err != nil {
		m.lastErr = err.Error()
		return err
	}
	return m.persistFilesLocked()
}

// folderNameTakenLocked reports a case-insensitive name collision,
// ignoring excludeID so renames don't collide with themselves.
func (m *FileManager) folderNameTakenLocked(name, excludeID string) bool {
	for _, f := range m.folders {
		if f.ID != excludeID && strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (m *FileManager) persistFilesLocked() error {
	if err := m.store.SaveFiles(m.files); err != nil {
		m.lastErr = err.Error()
		return err
	}
	return nil
}

// Counts maps every fixed category and every folder id to its number of
// live files, plus "all" (live) and "trash" (deleted).
func (m *FileManager) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]int{"all": 0}
	for _, cat := range []models.Category{
		models.CategoryDocuments,
		models.CategoryImages,
		models.CategoryVideos,
		models.CategoryMusic,
		models.CategoryOthers,
		models.CategoryTrash,
	} {
		counts[string(cat)] = 0
	}
	for _, folder := range m.folders {
		counts[folder.ID] = 0
	}

	for _, f := range m.files {
		if f.IsDeleted {
			counts[string(models.CategoryTrash)]++
			continue
		}
		counts["all"]++
		counts[string(Classify(f))]++
		if f.FolderID != nil {
			if _, ok := counts[*f.FolderID]; ok {
				counts[*f.FolderID]++
			}
		}
	}
	return counts
}

// FilteredFiles returns the active view's files: deleted files for trash,
// folder members for folder views, classifier matches for category views,
// and every live file for "all" and "dashboard". Deleted files never leak
// into non-trash views.
func (m *FileManager) FilteredFiles() []models.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := m.activeView
	filtered := []models.FileRecord{}
	for _, f := range m.files {
		if view == string(models.CategoryTrash) {
			if f.IsDeleted {
				filtered = append(filtered, f)
			}
			continue
		}
		if f.IsDeleted {
			continue
		}

		if folderID, ok := strings.CutPrefix(view, models.FolderViewPrefix); ok {
			if f.FolderID != nil && *f.FolderID == folderID {
				filtered = append(filtered, f)
			}
			continue
		}

		if view == models.ViewAll || view == models.ViewDashboard {
			filtered = append(filtered, f)
			continue
		}

		if string(Classify(f)) == view {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// StorageUsage derives quota usage from the full live collection.
func (m *FileManager) StorageUsage() models.StorageUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Usage(m.files, m.limits.QuotaBytes)
}

// Files returns a copy of the whole collection, trash included.
func (m *FileManager) Files() []models.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FileRecord, len(m.files))
	copy(out, m.files)
	return out
}

func (m *FileManager) Folders() []models.FolderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FolderRecord, len(m.folders))
	copy(out, m.folders)
	return out
}

// FileByID looks up a record by id regardless of deletion state.
func (m *FileManager) FileByID(id string) (models.FileRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == id {
			return f, true
		}
	}
	return models.FileRecord{}, false
}

func (m *FileManager) ActiveView() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeView
}

func (m *FileManager) SetActiveView(view string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeView = view
}

// LastError returns the message of the most recent failed operation; a
// new failure overwrites it and ClearError is the explicit reset.
func (m *FileManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *FileManager) ClearError() {
	m.setError("")
}

func (m *FileManager) setError(message string) {
	m.mu.Lock()
	m.lastErr = message
	m.mu.Unlock()
}

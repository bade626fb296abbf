package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/internal/storage"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *kvstore.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&kvstore.Entry{}); err != nil {
		t.Fatalf("failed automigrating kv entries: %v", err)
	}
	return kvstore.New(db)
}

// fakeStorage records calls instead of talking to a real object store.
type fakeStorage struct {
	mu        sync.Mutex
	uploads   int
	deletes   []string
	uploadErr error
}

func (f *fakeStorage) Upload(ctx context.Context, userID, filename string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	path := userID + "/" + filename
	return &storage.UploadResult{
		PublicURL: "http://objects.local/files/" + path,
		Path:      path,
	}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, objectName)
	return nil
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxFileBytes:  50 * 1024 * 1024,
		QuotaBytes:    1024 * 1024 * 1024,
		ShareTTLHours: 24,
	}
}

func testPrincipal() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Email:     "owner@test.com",
		FirstName: "Owner",
	}
}

func addTestFile(t *testing.T, m *FileManager, user *models.User, name, contentType string, size int64) *models.FileRecord {
	t.Helper()

	record, err := m.AddFile(context.TODO(), user, name, contentType, bytes.NewReader([]byte("data")), size)
	if err != nil {
		t.Fatalf("failed adding file %s: %v", name, err)
	}
	return record
}

func TestAddFileRejectsOversizedBeforeUpload(t *testing.T) {
	store := setupTestStore(t)
	objects := &fakeStorage{}
	manager := NewFileManager(store, objects, nil, testLimits())

	_, err := manager.AddFile(context.TODO(), testPrincipal(), "huge.bin", "application/octet-stream", strings.NewReader("x"), 60*1024*1024)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if objects.uploads != 0 {
		t.Fatalf("expected no upload attempt for oversized file, got %d", objects.uploads)
	}
	if len(manager.Files()) != 0 {
		t.Fatalf("expected no record for oversized file")
	}
	if manager.LastError() == "" {
		t.Fatal("expected last error to be set")
	}
}

func TestAddFileRequiresPrincipal(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())

	_, err := manager.AddFile(context.TODO(), nil, "a.txt", "text/plain", strings.NewReader("x"), 10)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAddFilePrependsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	objects := &fakeStorage{}
	manager := NewFileManager(store, objects, nil, testLimits())
	user := testPrincipal()

	addTestFile(t, manager, user, "first.pdf", "application/pdf", 1024)
	addTestFile(t, manager, user, "second.png", "image/png", 2048)

	files := manager.Files()
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "second.png" {
		t.Fatalf("expected newest file first, got %q", files[0].Name)
	}
	if files[0].SizeLabel != "2.00 KB" {
		t.Fatalf("expected size label 2.00 KB, got %q", files[0].SizeLabel)
	}
	if files[0].RemotePath == "" || files[0].RemoteURL == "" {
		t.Fatal("expected remote location on the record")
	}
	if objects.uploads != 2 {
		t.Fatalf("expected 2 uploads, got %d", objects.uploads)
	}
}

func TestAddFileUploadFailureLeavesCollectionUntouched(t *testing.T) {
	store := setupTestStore(t)
	objects := &fakeStorage{uploadErr: fmt.Errorf("%w: connection refused", storage.ErrUpload)}
	manager := NewFileManager(store, objects, nil, testLimits())

	_, err := manager.AddFile(context.TODO(), testPrincipal(), "a.txt", "text/plain", strings.NewReader("x"), 10)
	if !errors.Is(err, storage.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if len(manager.Files()) != 0 {
		t.Fatal("expected no record after failed upload")
	}
}

func TestDeleteRestorePurgeFlow(t *testing.T) {
	store := setupTestStore(t)
	objects := &fakeStorage{}
	manager := NewFileManager(store, objects, nil, testLimits())
	record := addTestFile(t, manager, testPrincipal(), "report.pdf", "application/pdf", 1024)

	if err := manager.DeleteFile(record.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	manager.SetActiveView(models.ViewAll)
	if len(manager.FilteredFiles()) != 0 {
		t.Fatal("deleted file should not appear in the all view")
	}

	manager.SetActiveView(string(models.CategoryTrash))
	trash := manager.FilteredFiles()
	if len(trash) != 1 || !trash[0].IsDeleted {
		t.Fatalf("expected one deleted file in trash, got %+v", trash)
	}

	// Deleting again is a no-op.
	if err := manager.DeleteFile(record.ID); err != nil {
		t.Fatalf("repeated delete failed: %v", err)
	}

	if err := manager.RestoreFile(record.ID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	restored, ok := manager.FileByID(record.ID)
	if !ok || restored.IsDeleted {
		t.Fatal("expected file restored")
	}

	if err := manager.PermanentDeleteFile(context.TODO(), record.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if _, ok := manager.FileByID(record.ID); ok {
		t.Fatal("expected record gone after purge")
	}
	if len(objects.deletes) != 1 || objects.deletes[0] != record.RemotePath {
		t.Fatalf("expected compensating remote delete of %q, got %v", record.RemotePath, objects.deletes)
	}

	// Purging an unknown id is a no-op.
	if err := manager.PermanentDeleteFile(context.TODO(), "missing"); err != nil {
		t.Fatalf("purge of unknown id failed: %v", err)
	}
}

func TestRenameFileEmptyNameIsNoOp(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	record := addTestFile(t, manager, testPrincipal(), "old.txt", "text/plain", 10)

	if err := manager.RenameFile(record.ID, "   "); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	got, _ := manager.FileByID(record.ID)
	if got.Name != "old.txt" {
		t.Fatalf("expected name unchanged, got %q", got.Name)
	}

	if err := manager.RenameFile(record.ID, "new.txt"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	got, _ = manager.FileByID(record.ID)
	if got.Name != "new.txt" {
		t.Fatalf("expected renamed file, got %q", got.Name)
	}
}

func TestMoveFileOverridesCategory(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	record := addTestFile(t, manager, testPrincipal(), "photo.png", "image/png", 10)

	if err := manager.MoveFile(record.ID, string(models.CategoryDocuments)); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	manager.SetActiveView(string(models.CategoryDocuments))
	if len(manager.FilteredFiles()) != 1 {
		t.Fatal("expected overridden file in documents view")
	}
	manager.SetActiveView(string(models.CategoryImages))
	if len(manager.FilteredFiles()) != 0 {
		t.Fatal("override should win over mime inference")
	}
}

func TestFolderLifecycle(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())

	folder, err := manager.CreateFolder("  Work  ")
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	if folder.Name != "Work" {
		t.Fatalf("expected trimmed name, got %q", folder.Name)
	}

	if _, err := manager.CreateFolder("work"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected case-insensitive duplicate rejection, got %v", err)
	}
	if _, err := manager.CreateFolder("   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}

	// Renaming to its own name is allowed.
	if err := manager.RenameFolder(folder.ID, "WORK"); err != nil {
		t.Fatalf("self-rename failed: %v", err)
	}

	other, err := manager.CreateFolder("Personal")
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	if err := manager.RenameFolder(other.ID, "work"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate rejection on rename, got %v", err)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	record := addTestFile(t, manager, testPrincipal(), "notes.txt", "text/plain", 10)

	folder, err := manager.CreateFolder("Projects")
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	if err := manager.MoveFileToFolder(record.ID, &folder.ID); err != nil {
		t.Fatalf("move to folder failed: %v", err)
	}

	manager.SetActiveView(models.FolderViewPrefix + folder.ID)
	if len(manager.FilteredFiles()) != 1 {
		t.Fatal("expected file in folder view")
	}

	if err := manager.DeleteFolder(folder.ID); err != nil {
		t.Fatalf("delete folder failed: %v", err)
	}

	got, _ := manager.FileByID(record.ID)
	if got.FolderID != nil {
		t.Fatal("expected file unfiled after folder delete")
	}
	if manager.ActiveView() != models.ViewAll {
		t.Fatalf("expected active view reset to all, got %q", manager.ActiveView())
	}
	if got.IsDeleted {
		t.Fatal("folder delete must not delete files")
	}
}

func TestCounts(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	user := testPrincipal()

	addTestFile(t, manager, user, "a.pdf", "application/pdf", 10)
	addTestFile(t, manager, user, "b.png", "image/png", 10)
	song := addTestFile(t, manager, user, "c.mp3", "audio/mpeg", 10)
	deleted := addTestFile(t, manager, user, "d.zip", "application/zip", 10)
	if err := manager.DeleteFile(deleted.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	folder, err := manager.CreateFolder("Music Box")
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	if err := manager.MoveFileToFolder(song.ID, &folder.ID); err != nil {
		t.Fatalf("move to folder failed: %v", err)
	}

	counts := manager.Counts()
	expected := map[string]int{
		"all":       3,
		"documents": 1,
		"images":    1,
		"videos":    0,
		"music":     1,
		"others":    0,
		"trash":     1,
		folder.ID:   1,
	}
	for key, want := range expected {
		if counts[key] != want {
			t.Errorf("counts[%q] = %d, want %d", key, counts[key], want)
		}
	}
}

func TestManagerReloadsFromStore(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	record := addTestFile(t, manager, testPrincipal(), "keep.txt", "text/plain", 10)
	if _, err := manager.CreateFolder("Archive"); err != nil {
		t.Fatalf("create folder failed: %v", err)
	}

	reloaded := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	if _, ok := reloaded.FileByID(record.ID); !ok {
		t.Fatal("expected file to survive a reload")
	}
	if len(reloaded.Folders()) != 1 {
		t.Fatalf("expected 1 folder after reload, got %d", len(reloaded.Folders()))
	}
	if reloaded.ActiveView() != models.ViewAll {
		t.Fatalf("expected fresh manager to start on all, got %q", reloaded.ActiveView())
	}
}

func TestLastErrorSlot(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())

	_, _ = manager.AddFile(context.TODO(), testPrincipal(), "big", "", strings.NewReader("x"), 99*1024*1024)
	if manager.LastError() == "" {
		t.Fatal("expected error recorded")
	}

	// A later success clears the slot on entry.
	addTestFile(t, manager, testPrincipal(), "ok.txt", "text/plain", 10)
	if manager.LastError() != "" {
		t.Fatalf("expected error cleared by successful add, got %q", manager.LastError())
	}

	_, _ = manager.CreateFolder("")
	if manager.LastError() == "" {
		t.Fatal("expected validation error recorded")
	}
	manager.ClearError()
	if manager.LastError() != "" {
		t.Fatal("expected explicit clear to empty the slot")
	}
}

func TestStorageUsageExcludesTrash(t *testing.T) {
	store := setupTestStore(t)
	manager := NewFileManager(store, &fakeStorage{}, nil, testLimits())
	user := testPrincipal()

	addTestFile(t, manager, user, "a.bin", "application/octet-stream", 2*1024*1024)
	deleted := addTestFile(t, manager, user, "b.bin", "application/octet-stream", 3*1024*1024)
	if err := manager.DeleteFile(deleted.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	usage := manager.StorageUsage()
	if usage.UsedBytes != 2*1024*1024 {
		t.Fatalf("expected 2 MB used, got %d", usage.UsedBytes)
	}
	if usage.TotalBytes != testLimits().QuotaBytes {
		t.Fatalf("unexpected total %d", usage.TotalBytes)
	}
}

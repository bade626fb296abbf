package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/middleware"
	"github.com/filedesk/backend/internal/models"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/internal/storage"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	store   *kvstore.Store
	manager *services.FileManager
	links   *services.ShareLinkManager
	center  *services.NotificationCenter
	objects *fakeStorage
}

// fakeStorage stands in for the MinIO client in handler tests.
type fakeStorage struct {
	mu      sync.Mutex
	uploads int
	deletes []string
}

func (f *fakeStorage) Upload(ctx context.Context, userID, filename string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &kvstore.Entry{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	store := kvstore.New(db)
	objects := &fakeStorage{}
	limits := config.LimitsConfig{
		MaxFileBytes:  50 * 1024 * 1024,
		QuotaBytes:    1024 * 1024 * 1024,
		ShareTTLHours: 24,
	}

	center := services.NewNotificationCenter(store)
	manager := services.NewFileManager(store, objects, center, limits)
	links := services.NewShareLinkManager(store, manager, 24*time.Hour)

	authHandler := NewAuthHandler(db)
	filesHandler := NewFilesHandler(manager)
	foldersHandler := NewFoldersHandler(manager)
	sharesHandler := NewSharesHandler(links, manager)
	notesHandler := NewNotesHandler(store, center)
	prodHandler := NewProductivityHandler(store, center)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3001"))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)

	api.Get("/share/:linkId", authMiddleware.OptionalAuth, sharesHandler.Resolve)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/counts", filesHandler.Counts)
	fileRoutes.Get("/usage", filesHandler.Usage)
	fileRoutes.Get("/error", filesHandler.LastError)
	fileRoutes.Delete("/error", filesHandler.ClearError)
	fileRoutes.Get("/:id", filesHandler.Get)
	fileRoutes.Put("/:id/rename", filesHandler.Rename)
	fileRoutes.Put("/:id/category", filesHandler.MoveCategory)
	fileRoutes.Put("/:id/folder", filesHandler.MoveToFolder)
	fileRoutes.Post("/:id/share", sharesHandler.CreateLink)
	fileRoutes.Delete("/:id", filesHandler.Delete)
	fileRoutes.Post("/:id/restore", filesHandler.Restore)
	fileRoutes.Delete("/:id/purge", filesHandler.Purge)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Put("/:id", foldersHandler.Rename)
	folderRoutes.Delete("/:id", foldersHandler.Delete)

	noteRoutes := api.Group("/notes", authMiddleware.RequireAuth)
	noteRoutes.Post("/", notesHandler.Create)
	noteRoutes.Get("/", notesHandler.List)
	noteRoutes.Get("/trash", notesHandler.Trash)
	noteRoutes.Get("/tags", notesHandler.Tags)
	noteRoutes.Get("/stats", notesHandler.Stats)
	noteRoutes.Put("/:id", notesHandler.Update)
	noteRoutes.Post("/:id/pin", notesHandler.TogglePin)
	noteRoutes.Delete("/:id", notesHandler.Delete)
	noteRoutes.Post("/:id/restore", notesHandler.Restore)
	noteRoutes.Delete("/:id/purge", notesHandler.Purge)

	taskRoutes := api.Group("/tasks", authMiddleware.RequireAuth)
	taskRoutes.Post("/", prodHandler.CreateTask)
	taskRoutes.Get("/", prodHandler.ListTasks)
	taskRoutes.Post("/:id/toggle", prodHandler.ToggleTask)
	taskRoutes.Delete("/:id", prodHandler.DeleteTask)

	calendarRoutes := api.Group("/calendar", authMiddleware.RequireAuth)
	calendarRoutes.Get("/", prodHandler.ListEvents)
	calendarRoutes.Put("/:date", prodHandler.PutEvent)
	calendarRoutes.Delete("/:date", prodHandler.DeleteEvent)

	api.Get("/preferences", authMiddleware.RequireAuth, prodHandler.GetPreferences)
	api.Put("/preferences", authMiddleware.RequireAuth, prodHandler.PutPreferences)

	api.Get("/notifications", authMiddleware.RequireAuth, prodHandler.ListNotifications)
	api.Post("/notifications/read", authMiddleware.RequireAuth, prodHandler.MarkNotificationsRead)

	return &testEnv{
		app:     app,
		db:      db,
		store:   store,
		manager: manager,
		links:   links,
		center:  center,
		objects: objects,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

// uploadTestFile posts a multipart upload of size bytes and returns the
// decoded response envelope.
func uploadTestFile(t *testing.T, app *fiber.App, token, filename, contentType string, size int) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed creating multipart part: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("a"), size)); err != nil {
		t.Fatalf("failed writing multipart body: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	headers := authHeaders(token)
	headers["Content-Type"] = writer.FormDataContentType()
	return performRequest(t, app, http.MethodPost, "/api/files/upload", &buf, headers)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	body := decodeJSONMap(t, resp)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in envelope, got %+v", body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

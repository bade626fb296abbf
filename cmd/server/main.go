package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/internal/database"
	"github.com/filedesk/backend/internal/handlers"
	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/middleware"
	"github.com/filedesk/backend/internal/services"
	"github.com/filedesk/backend/internal/storage"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/filedesk/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	store := kvstore.New(db)

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	center := services.NewNotificationCenter(store)
	manager := services.NewFileManager(store, storageClient, center, cfg.Limits)
	links := services.NewShareLinkManager(store, manager, time.Duration(cfg.Limits.ShareTTLHours)*time.Hour)
	oauthProvider := services.NewOAuthProviderService(cfg)

	authHandler := handlers.NewAuthHandler(db)
	ssoHandler := handlers.NewSSOHandler(db, oauthProvider, cfg)
	filesHandler := handlers.NewFilesHandler(manager)
	foldersHandler := handlers.NewFoldersHandler(manager)
	sharesHandler := handlers.NewSharesHandler(links, manager)
	notesHandler := handlers.NewNotesHandler(store, center)
	prodHandler := handlers.NewProductivityHandler(store, center)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Limits.MaxFileBytes) + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Get("/sso/:provider", ssoHandler.GetLoginRedirect)
	authRoutes.Get("/sso/:provider/callback", ssoHandler.HandleCallback)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

// @title           Fileforge Backend API
// @version         1.0.0
// @description     Multi-tenant file-transformation service: upload media (images, video, audio, PDFs, web captures) and run one of a fixed catalog of transformation tools. Results are persisted into a hybrid storage tier and retrievable through opaque storage references.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fileforge-backend/internal/config"
	"fileforge-backend/internal/database"
	"fileforge-backend/internal/dispatch"
	"fileforge-backend/internal/engine"
	"fileforge-backend/internal/events"
	"fileforge-backend/internal/handlers"
	"fileforge-backend/internal/middleware"
	"fileforge-backend/internal/objstore"
	"fileforge-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// External engine binaries are validated once here; a bad path is a
	// deployment error, not something to probe per request.
	ffmpeg := engine.NewFFmpeg(cfg.FFmpegPath, logger)
	if err := ffmpeg.Validate(); err != nil {
		log.Fatalf("Engine validation failed: %v", err)
	}

	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database client: %v", err)
	}
	defer dbClient.Close()

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()
	log.Println("Migrations completed successfully")

	// The external tier is optional; without it every result is stored
	// inline in the database.
	var objects storage.ObjectStore
	if cfg.ExternalStorageConfigured() {
		client, err := objstore.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize storage client: %v", err)
		}
		objects = client
	} else {
		log.Println("Warning: no external object store configured, using inline storage only")
	}

	publisher, err := events.NewPublisher(cfg.SupabaseURL, cfg.SupabasePublishableKey)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	store := storage.NewStore(dbClient, objects, cfg.InlineMaxBytes, logger)

	renderer := engine.NewRenderer(cfg.ChromeDevtoolsURL, logger)
	adapters := map[string]engine.Adapter{
		dispatch.DomainImage:   engine.NewImageAdapter(ffmpeg),
		dispatch.DomainMedia:   engine.NewMediaAdapter(ffmpeg),
		dispatch.DomainPDF:     engine.NewPDFAdapter(renderer),
		dispatch.DomainCapture: engine.NewCaptureAdapter(renderer, cfg.MediaResolverURL),
	}
	dispatcher := dispatch.New(adapters, logger)

	transformHandler := handlers.NewTransformHandler(dispatcher, store, dbClient, publisher, cfg.ScratchDir, logger)
	contentHandler := handlers.NewContentHandler(store, logger)
	operationsHandler := handlers.NewOperationsHandler(dbClient, store, logger)

	router := gin.Default()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.HealthHandler)

	// Content resolution is open: references are opaque and sharing flows
	// hand them to unauthenticated consumers.
	router.GET("/content/*reference", contentHandler.Resolve)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/transform/:domain", transformHandler.Transform)

	authed := api.Group("")
	authed.Use(middleware.RequireUser())
	authed.GET("/operations", operationsHandler.List)
	authed.GET("/operations/:operation_id", operationsHandler.Get)
	authed.DELETE("/operations/:operation_id", operationsHandler.Delete)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

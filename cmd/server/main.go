package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/bulk"
	"github.com/emeraldcitybeacon/conduit/internal/config"
	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/health"
	"github.com/emeraldcitybeacon/conduit/internal/middleware"
	"github.com/emeraldcitybeacon/conduit/internal/repository"
	"github.com/emeraldcitybeacon/conduit/internal/resource"
	"github.com/emeraldcitybeacon/conduit/internal/search"
	"github.com/emeraldcitybeacon/conduit/internal/shelves"
	"github.com/emeraldcitybeacon/conduit/internal/worklists"
	"github.com/emeraldcitybeacon/conduit/internal/workflow"
	"github.com/emeraldcitybeacon/conduit/migrations"

	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DB, migrations.FS); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	orgRepo := repository.NewOrganizationRepository(conn.Pool)
	serviceRepo := repository.NewServiceRepository(conn.Pool)
	locationRepo := repository.NewLocationRepository(conn.Pool)
	versionRepo := repository.NewFieldVersionRepository(conn.Pool)
	verificationRepo := repository.NewVerificationRepository(conn.Pool)
	sensitiveRepo := repository.NewSensitiveRepository(conn.Pool)
	draftRepo := repository.NewDraftRepository(conn.Pool)
	changeRequestRepo := repository.NewChangeRequestRepository(conn.Pool)
	bulkRepo := repository.NewBulkOperationRepository(conn.Pool)
	shelfRepo := repository.NewShelfRepository(conn.Pool)
	worklistRepo := repository.NewWorklistRepository(conn.Pool)
	healthRepo := repository.NewHealthRepository(conn.Pool)

	// Create services
	resourceService := resource.NewService(
		serviceRepo, orgRepo, locationRepo,
		versionRepo, verificationRepo, sensitiveRepo,
		resource.DefaultFieldPolicy(), conn,
	)
	draftService := workflow.NewDraftService(
		draftRepo, orgRepo, locationRepo, serviceRepo,
		versionRepo, verificationRepo, conn,
	)
	changeRequestService := workflow.NewChangeRequestService(
		changeRequestRepo, orgRepo, locationRepo, serviceRepo,
		versionRepo, verificationRepo, conn,
	)
	bulkEngine := bulk.NewEngine(bulkRepo, shelfRepo, serviceRepo, versionRepo, conn)
	shelfService := shelves.NewService(shelfRepo, serviceRepo)
	worklistService := worklists.NewService(worklistRepo, serviceRepo)

	// Mount routes
	mux := http.NewServeMux()
	resource.NewHTTPHandler(resourceService).Register(mux)
	workflow.NewHTTPHandler(draftService, changeRequestService).Register(mux)
	bulk.NewHTTPHandler(bulkEngine).Register(mux)
	shelves.NewHTTPHandler(shelfService).Register(mux)
	worklists.NewHTTPHandler(worklistService).Register(mux)
	search.NewHTTPHandler(orgRepo, serviceRepo, locationRepo).Register(mux)
	health.NewHTTPHandler(healthRepo).Register(mux)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := middleware.LoggingMiddleware(
		corsHandler.Handler(
			auth.Middleware([]byte(cfg.AuthSecret))(mux),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting resource API on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

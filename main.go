package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/sheetlot/scanbackend/config"
	"github.com/sheetlot/scanbackend/database"
	"github.com/sheetlot/scanbackend/gemini"
	"github.com/sheetlot/scanbackend/handlers"
	"github.com/sheetlot/scanbackend/media"
	"github.com/sheetlot/scanbackend/realtime"
	"github.com/sheetlot/scanbackend/repository"
	"github.com/sheetlot/scanbackend/services"
	"github.com/sheetlot/scanbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.UploadsPath, cfg.CropsPath, cfg.CombinedPath, cfg.LotsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	// single-writer guard: a second backend against the same storage would
	// race the sqlite file and the pairing state
	dataLock := flock.New(filepath.Join(cfg.MediaStoragePath, "scanbackend.lock"))
	locked, err := dataLock.TryLock()
	if err != nil {
		log.Fatalf("FATAL: Failed to acquire data directory lock: %v", err)
	}
	if !locked {
		log.Fatalf("FATAL: Another instance already holds %s", dataLock.Path())
	}
	defer dataLock.Unlock()

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeUpload:   filepath.Base(cfg.UploadsPath),
		media.AssetTypeCrop:     filepath.Base(cfg.CropsPath),
		media.AssetTypeCombined: filepath.Base(cfg.CombinedPath),
		media.AssetTypeLot:      filepath.Base(cfg.LotsPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore)

	entityRepo := repository.NewEntityRepository(db, cfg.StoreRetries)
	recordRepo, err := repository.NewRecordRepository(db, cfg.StoreRetries)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize record repository: %v", err)
	}
	activityRepo := repository.NewActivityRepository(db, cfg.StoreRetries)

	pairing := services.NewPairingCoordinator()
	detector := media.NewContourGridDetector()
	resolver := services.NewGridResolver(entityRepo, recordRepo, pairing, detector, mediaStore)

	if cfg.GeminiAPIKey == "" {
		log.Printf("Warning: GEMINI_API_KEY not set; AI extraction tasks will fail until configured")
	}
	extractor := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)

	scanService := &services.ScanService{
		Entities:  entityRepo,
		Records:   recordRepo,
		Activity:  activityRepo,
		Pairing:   pairing,
		Resolver:  resolver,
		Processor: mediaProcessor,
		Extractor: extractor,
	}

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing task worker pool (Workers: %d, Queue Size: %d)...", cfg.NumTaskWorkers, cfg.TaskQueueSize)
	taskProcessor := workers.NewTaskProcessor(scanService, recordRepo, hub, cfg.TaskQueueSize, cfg.NumTaskWorkers)
	defer taskProcessor.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing media in: %s", cfg.MediaStoragePath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(corsHandler.Handler)

	scanHandler := handlers.NewScanHandler(scanService, entityRepo, recordRepo)
	gridHandler := handlers.NewGridHandler(scanService)
	extractionHandler := handlers.NewExtractionHandler(scanService, taskProcessor)
	combinedHandler := handlers.NewCombinedHandler(scanService)
	activityHandler := handlers.NewActivityHandler(scanService, activityRepo)
	sessionHandler := handlers.NewSessionHandler(scanService)
	assetServer := handlers.NewAssetServer(mediaStore)

	r.Route("/api", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", scanHandler.UploadScan)
			r.Route("/{entityID}", func(r chi.Router) {
				r.Get("/", scanHandler.GetEntity)
				r.Post("/grid/resolve", gridHandler.ResolveGrid)
				r.Put("/grid", gridHandler.SetGridOverride)
				r.Post("/extraction", extractionHandler.RecordExtraction)
				r.Post("/extract", extractionHandler.QueueExtraction)
				r.Post("/metadata", extractionHandler.RecordAIMetadata)
				r.Post("/ai_extract", extractionHandler.QueueAIExtraction)
			})
		})

		r.Post("/combined", combinedHandler.DeriveCombined)

		r.Post("/activity", activityHandler.LogActivity)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/activity", activityHandler.ListActivity)
			r.Get("/pairing", sessionHandler.GetPairing)
			r.Delete("/pairing", sessionHandler.ResetPairing)
		})

		r.Get("/assets/*", assetServer.ServeAsset)
	})

	r.Get("/ws", hub.ServeWS)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL: Server failed: %v", err)
	}
}

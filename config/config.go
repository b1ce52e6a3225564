package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultUploadsSubDir  = "uploads"
	DefaultCropsSubDir    = "crops"
	DefaultCombinedSubDir = "combined"
	DefaultLotsSubDir     = "lots"
)

const (
	defaultTaskQueueSize  = 200
	defaultNumTaskWorkers = 4
	defaultStoreRetries   = 3
	defaultGeminiModel    = "gemini-1.5-flash"
)

type Config struct {
	// HTTP listen address
	ListenAddr string

	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored scans and derived assets
	UploadsPath      string // full-calculated path for original uploads
	CropsPath        string // full-calculated path for extracted crops
	CombinedPath     string // full-calculated path for combined composites
	LotsPath         string // full-calculated path for lot column strips

	// worker settings
	TaskQueueSize  int
	NumTaskWorkers int

	// store write retry count for transient sqlite contention
	StoreRetries int

	// gemini settings
	GeminiAPIKey string
	GeminiModel  string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	listenAddr := getEnvOrDefault("LISTEN_ADDR", ":8080")

	dbPath := getEnvOrDefault("DATABASE_PATH", "scans.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	uploadsSubDir := getEnvOrDefault("UPLOADS_SUBDIR", DefaultUploadsSubDir)
	cropsSubDir := getEnvOrDefault("CROPS_SUBDIR", DefaultCropsSubDir)
	combinedSubDir := getEnvOrDefault("COMBINED_SUBDIR", DefaultCombinedSubDir)
	lotsSubDir := getEnvOrDefault("LOTS_SUBDIR", DefaultLotsSubDir)

	queueSize := getEnvIntOrDefault("TASK_QUEUE_SIZE", defaultTaskQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_TASK_WORKERS", defaultNumTaskWorkers)
	retries := getEnvIntOrDefault("STORE_RETRIES", defaultStoreRetries)

	cfg := Config{
		ListenAddr:       listenAddr,
		DatabasePath:     dbPath,
		MediaStoragePath: absMediaStorage,
		UploadsPath:      filepath.Join(absMediaStorage, uploadsSubDir),
		CropsPath:        filepath.Join(absMediaStorage, cropsSubDir),
		CombinedPath:     filepath.Join(absMediaStorage, combinedSubDir),
		LotsPath:         filepath.Join(absMediaStorage, lotsSubDir),
		TaskQueueSize:    queueSize,
		NumTaskWorkers:   numWorkers,
		StoreRetries:     retries,
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime configuration for the storytopia server.
type Config struct {
	// HTTP server
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding     string        `envconfig:"LOG_ENCODING" default:"json"`

	// Firebase / Firestore
	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID" required:"true"`
	FirebaseCredentialsPath string `envconfig:"FIREBASE_CREDENTIALS_PATH"`

	// Object storage
	GCSBucketName   string `envconfig:"GCS_BUCKET_NAME" required:"true"`
	ImageFolderName string `envconfig:"IMAGE_FOLDER_NAME" default:"storytopia_images"`
	AudioFolderName string `envconfig:"AUDIO_FOLDER_NAME" default:"storytopia_audio"`

	// OpenAI
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL" default:""`
	TextModel        string        `envconfig:"TEXT_MODEL" default:"gpt-4o"`
	RepairModel      string        `envconfig:"REPAIR_MODEL" default:"gpt-4o"`
	ImageModel       string        `envconfig:"IMAGE_MODEL" default:"dall-e-3"`
	EmbeddingModel   string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	TextGenTimeout   time.Duration `envconfig:"TEXT_GEN_TIMEOUT" default:"120s"`
	ImageGenTimeout  time.Duration `envconfig:"IMAGE_GEN_TIMEOUT" default:"120s"`
	SynthesisTimeout time.Duration `envconfig:"SYNTHESIS_TIMEOUT" default:"60s"`
	// Secret field WITHOUT an envconfig tag, loaded separately.
	OpenAIAPIKey string

	// Pipeline policy
	SceneCount           int `envconfig:"SCENE_COUNT" default:"10"`
	GenerationAttempts   int `envconfig:"GENERATION_ATTEMPTS" default:"3"`
	ImageRetriesPerScene int `envconfig:"IMAGE_RETRIES_PER_SCENE" default:"2"`
	MaxBackgroundTasks   int `envconfig:"MAX_BACKGROUND_TASKS" default:"10"`

	// Retrieval index (Redis)
	RedisAddr          string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB            int           `envconfig:"REDIS_DB" default:"0"`
	IndexRetryAttempts uint64        `envconfig:"INDEX_RETRY_ATTEMPTS" default:"3"`
	IndexRetryInterval time.Duration `envconfig:"INDEX_RETRY_INTERVAL" default:"1s"`
	WikipediaLimit     int           `envconfig:"WIKIPEDIA_LIMIT" default:"5"`
	// Secret field WITHOUT an envconfig tag, loaded separately.
	RedisPassword string
}

// Load reads the configuration from environment variables and secrets.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var loadErr error
	cfg.OpenAIAPIKey, loadErr = readSecret("OPENAI_API_KEY", "openai_api_key", true)
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.RedisPassword, _ = readSecret("REDIS_PASSWORD", "redis_password", false)

	log.Printf("Configuration loaded:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  Firebase project: %s", cfg.FirebaseProjectID)
	log.Printf("  GCS bucket: %s", cfg.GCSBucketName)
	log.Printf("  Text model: %s, image model: %s", cfg.TextModel, cfg.ImageModel)
	log.Printf("  Scene count: %d, generation attempts: %d, image retries/scene: %d",
		cfg.SceneCount, cfg.GenerationAttempts, cfg.ImageRetriesPerScene)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	log.Println("  OpenAI API key: [LOADED]")

	return &cfg, nil
}

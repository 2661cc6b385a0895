package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	gcs "cloud.google.com/go/storage"

	"storytopia-server/internal/api"
	"storytopia-server/internal/clients"
	"storytopia-server/internal/config"
	"storytopia-server/internal/middleware"
	"storytopia-server/internal/notification"
	"storytopia-server/internal/repository"
	"storytopia-server/internal/retrieval"
	"storytopia-server/internal/service"
	"storytopia-server/internal/storage"
	"storytopia-server/pkg/logger"
	"storytopia-server/pkg/taskmanager"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.FirebaseCredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		sugar.Fatalf("Failed to initialize Firebase app: %v", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		sugar.Fatalf("Failed to create Firebase auth client: %v", err)
	}
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		sugar.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	gcsClient, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		sugar.Fatalf("Failed to create GCS client: %v", err)
	}
	defer gcsClient.Close()

	ttsClient, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		sugar.Fatalf("Failed to create text-to-speech client: %v", err)
	}
	defer ttsClient.Close()

	var notifier notification.Notifier
	if fcmClient, err := app.Messaging(ctx); err != nil {
		sugar.Warnf("Failed to create FCM client, notifications disabled: %v", err)
		notifier = notification.NewStubNotifier(zapLogger)
	} else {
		notifier = notification.NewFCMNotifier(fcmClient, zapLogger)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Warnf("Redis unreachable at startup, retrieval features degraded: %v", err)
	}

	openaiClient := clients.NewOpenAIClient(clients.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		TextModel:      cfg.TextModel,
		RepairModel:    cfg.RepairModel,
		ImageModel:     cfg.ImageModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}, zapLogger)

	storyRepo := repository.NewFirestoreStoryRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	objectStore := storage.NewGCSStore(gcsClient, cfg.GCSBucketName, zapLogger)

	generator := service.NewContentGenerator(openaiClient, cfg.SceneCount, cfg.GenerationAttempts, zapLogger)
	renderer := service.NewImageRenderer(openaiClient, openaiClient, objectStore, cfg.ImageFolderName, cfg.ImageRetriesPerScene, zapLogger)
	narrator := service.NewNarrator(clients.NewGoogleTTSClient(ttsClient), objectStore, cfg.AudioFolderName, zapLogger)

	wikiClient := retrieval.NewWikipediaClient(zapLogger)
	vectorStore := retrieval.NewVectorStore(rdb, openaiClient, cfg.IndexRetryAttempts, cfg.IndexRetryInterval, zapLogger)
	augmenter := retrieval.NewAugmenter(wikiClient, vectorStore, openaiClient, cfg.WikipediaLimit, zapLogger)

	tasks := taskmanager.New(taskmanager.Config{MaxTasks: cfg.MaxBackgroundTasks})
	defer tasks.Close()

	storyService := service.NewStoryService(
		storyRepo,
		userRepo,
		generator,
		renderer,
		narrator,
		augmenter,
		notifier,
		tasks,
		service.PipelineTimeouts{
			TextGen:   cfg.TextGenTimeout,
			ImageGen:  cfg.ImageGenTimeout,
			Synthesis: cfg.SynthesisTimeout,
		},
		zapLogger,
	)
	userService := service.NewUserService(userRepo, storyRepo, zapLogger)

	storyHandler := api.NewStoryHandler(storyService, zapLogger)
	userHandler := api.NewUserHandler(userService, zapLogger)
	router := api.NewRouter(storyHandler, userHandler, middleware.NewFirebaseVerifier(authClient), userRepo, zapLogger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		sugar.Infof("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("HTTP server shutdown error: %v", err)
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("Background tasks did not finish before timeout: %v", err)
	}

	sugar.Info("Server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/brandforge/api/internal/handlers"
	"github.com/brandforge/api/internal/platform/auth"
	"github.com/brandforge/api/internal/platform/config"
	pfirestore "github.com/brandforge/api/internal/platform/firestore"
	"github.com/brandforge/api/internal/platform/gemini"
	"github.com/brandforge/api/internal/platform/jobs"
	"github.com/brandforge/api/internal/platform/observability"
	"github.com/brandforge/api/internal/platform/secrets"
	"github.com/brandforge/api/internal/repositories"
	firestoreRepo "github.com/brandforge/api/internal/repositories/firestore"
	"github.com/brandforge/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Gemini.APIKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	accountRepo, err := firestoreRepo.NewAccountRepository(firestoreProvider,
		firestoreRepo.WithStartingGrant(cfg.Credits.StartingGrant),
	)
	if err != nil {
		logger.Fatal("failed to initialise account repository", zap.Error(err))
	}

	creditService, err := services.NewCreditService(services.CreditServiceDeps{
		Repository:      accountRepo,
		RefundOnFailure: cfg.Credits.RefundOnFailure,
	})
	if err != nil {
		logger.Fatal("failed to initialise credit service", zap.Error(err))
	}

	geminiClient, err := gemini.NewClient(ctx,
		cfg.Gemini.APIKey, cfg.Gemini.TextModel, cfg.Gemini.ImageModel,
		gemini.WithLogger(logger.Named("gemini")),
	)
	if err != nil {
		logger.Fatal("failed to initialise gemini client", zap.Error(err))
	}

	dialogueService, err := services.NewDialogueService(services.DialogueServiceDeps{
		Text:   geminiClient,
		Logger: logger.Named("dialogue"),
	})
	if err != nil {
		logger.Fatal("failed to initialise dialogue service", zap.Error(err))
	}

	var eventPublisher services.EventPublisher
	if cfg.Events.Enabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(cfg.Events.Topic)
		defer topic.Stop()

		eventPublisher, err = jobs.NewPubSubEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
	}

	generationService, err := services.NewGenerationService(services.GenerationServiceDeps{
		Credits:    creditService,
		Accounts:   accountRepo,
		Text:       geminiClient,
		Image:      geminiClient,
		Dialogue:   dialogueService,
		Events:     eventPublisher,
		Logger:     logger.Named("generation"),
		TextModel:  cfg.Gemini.TextModel,
		ImageModel: cfg.Gemini.ImageModel,
	})
	if err != nil {
		logger.Fatal("failed to initialise generation service", zap.Error(err))
	}

	generateHandler, err := handlers.NewGenerateHandler(generationService)
	if err != nil {
		logger.Fatal("failed to initialise generate handler", zap.Error(err))
	}

	healthRepo, err := newHealthRepository(firestoreClient)
	if err != nil {
		logger.Warn("health: dependency checks unavailable", zap.Error(err))
	}

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Generate:    generateHandler,
		Health:      handlers.NewHealthHandlers(healthRepo),
		Auth:        authenticator.RequireFirebaseAuth(),
		Middlewares: middlewares,
		Timeout:     cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("brandforge api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func newHealthRepository(client *firestore.Client) (repositories.HealthRepository, error) {
	if client == nil {
		return nil, errors.New("health: firestore client is required")
	}
	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := client.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		},
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

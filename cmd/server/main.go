// Command server runs the riskpulse HTTP service: the assessment pipeline,
// model registry, provider aggregation, and event emission behind one binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/turtacn/riskpulse/internal/application/service"
	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/infrastructure/aggregator"
	"github.com/turtacn/riskpulse/internal/infrastructure/engines"
	"github.com/turtacn/riskpulse/internal/infrastructure/events"
	"github.com/turtacn/riskpulse/internal/infrastructure/explain"
	"github.com/turtacn/riskpulse/internal/infrastructure/features"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/internal/infrastructure/persistence/postgres"
	redispersistence "github.com/turtacn/riskpulse/internal/infrastructure/persistence/redis"
	"github.com/turtacn/riskpulse/internal/infrastructure/providers"
	"github.com/turtacn/riskpulse/internal/infrastructure/registry"
	"github.com/turtacn/riskpulse/internal/infrastructure/resilience"
	"github.com/turtacn/riskpulse/internal/infrastructure/secrets"
	httpiface "github.com/turtacn/riskpulse/internal/interfaces/http"
	"github.com/turtacn/riskpulse/internal/interfaces/http/handlers"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"

	domainmodels "github.com/turtacn/riskpulse/internal/domain/models"
	domainservice "github.com/turtacn/riskpulse/internal/domain/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := monitoring.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := monitoring.InitTracer(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn(ctx, "tracer shutdown failed", logger.String("error", err.Error()))
		}
	}()

	metrics := monitoring.NewMetrics()

	// Backing stores.
	dbManager, err := postgres.NewDBManager(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer dbManager.Close()
	repo := postgres.NewAssessmentRepository(dbManager.DB)

	redisClient, err := redispersistence.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()
	cacheManager := redispersistence.NewCacheManager(redisClient, log)

	secretSource, err := secrets.NewSource(&cfg.Vault, log)
	if err != nil {
		return fmt.Errorf("initializing secret source: %w", err)
	}

	// Provider fan-out under the resilience envelope.
	breakers := resilience.NewBreakerTable(cfg.Breaker.FailureThreshold, cfg.Breaker.CooldownPeriod)
	clients := buildProviderClients(ctx, cfg, secretSource, log)
	recordCache := aggregator.NewRecordCache(redisClient,
		cfg.Aggregator.CacheTTL, cfg.Aggregator.LocalCacheTTL, metrics, log)
	dataAggregator := aggregator.New(clients, breakers, recordCache,
		cfg.Aggregator, cfg.Providers, metrics, log)

	// Model registry with late-bound ensemble member resolution.
	var modelRegistry *registry.ModelRegistry
	resolve := func(id domainmodels.ModelID) (domainservice.Engine, error) {
		handle, err := modelRegistry.Get(id)
		if err != nil {
			return nil, err
		}
		return handle.Engine, nil
	}
	factory := engines.NewFactory(cfg.Models, resolve)
	modelRegistry = registry.New(factory, cfg.Models.ByteBudget, metrics, log)
	if err := loadModels(cfg.Models, modelRegistry, log); err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	if cfg.Models.WatchStorage && cfg.Models.StoragePath != "" {
		watcher, err := registry.NewWatcher(modelRegistry, cfg.Models.StoragePath, log)
		if err != nil {
			log.Warn(ctx, "model storage watch disabled", logger.String("error", err.Error()))
		} else {
			go watcher.Run(ctx)
		}
	}

	// Event emission.
	publisher := events.NewKafkaPublisher(cfg.Kafka, metrics, log)
	defer publisher.Close()

	webhookSecret := resolveSecret(ctx, secretSource, cfg.Webhook.SecretPath, log)
	dispatcher := events.NewWebhookDispatcher(cfg.Webhook, webhookSecret, repo, metrics, log)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	assessmentService := service.NewAssessmentService(
		repo,
		dataAggregator,
		features.NewBuilder(),
		modelRegistry,
		engines.NewRouter(modelRegistry),
		explain.New(log),
		publisher,
		dispatcher,
		cacheManager,
		cfg.Providers.Financial.Timeout,
		metrics,
		log,
	)

	router := httpiface.NewRouter(cfg, httpiface.Handlers{
		Assessment: handlers.NewAssessmentHandler(assessmentService),
		Model:      handlers.NewModelHandler(modelRegistry),
		Provider:   handlers.NewProviderHandler(dataAggregator),
		Health: handlers.NewHealthHandler(
			handlers.DependencyCheck{Name: "postgres", Check: dbManager.Ping},
			handlers.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		),
	}, log)

	log.Info(ctx, "riskpulse starting",
		logger.String("service", constants.ServiceName))
	return router.Start(ctx)
}

// buildProviderClients resolves each provider's API key and constructs its
// client. A missing key is logged and the client runs unauthenticated; the
// provider then fails per call and degrades data quality instead of blocking
// startup.
func buildProviderClients(ctx context.Context, cfg *config.Config, source domainservice.SecretSource, log logger.Logger) []providers.Client {
	clients := make([]providers.Client, 0, len(constants.AllProviders))
	for _, id := range constants.AllProviders {
		providerCfg := cfg.Providers.ForProvider(id)
		apiKey := resolveSecret(ctx, source, providerCfg.APIKeySecret, log)

		switch id {
		case constants.ProviderFinancial:
			clients = append(clients, providers.NewFinancialClient(providerCfg, apiKey, log))
		case constants.ProviderSanctions:
			clients = append(clients, providers.NewSanctionsClient(providerCfg, apiKey, log))
		case constants.ProviderAdverseMedia:
			clients = append(clients, providers.NewAdverseMediaClient(providerCfg, apiKey, log))
		}
	}
	return clients
}

func resolveSecret(ctx context.Context, source domainservice.SecretSource, path string, log logger.Logger) string {
	if path == "" {
		return ""
	}
	value, err := source.Secret(ctx, path)
	if err != nil {
		log.Warn(ctx, "secret unavailable",
			logger.String("path", path), logger.String("error", err.Error()))
		return ""
	}
	return value
}

// loadModels seeds the registry with the bundled model set, preferring trained
// artifacts from model storage when present. Version pins select which
// artifact file is loaded for a model family.
func loadModels(cfg config.ModelsConfig, reg *registry.ModelRegistry, log logger.Logger) error {
	for _, descriptor := range engines.DefaultDescriptors() {
		blob := engines.DefaultBlob(descriptor.ID)

		if pin, ok := cfg.VersionPins[string(descriptor.ID)]; ok && pin != "" {
			artifact := filepath.Join(cfg.StoragePath,
				fmt.Sprintf("%s-%s.json", descriptor.ID, pin))
			raw, err := os.ReadFile(artifact)
			if err != nil {
				return fmt.Errorf("pinned artifact %s: %w", artifact, err)
			}
			descriptor.Version = pin
			blob = raw
		}

		if err := reg.Load(descriptor, blob); err != nil {
			return fmt.Errorf("loading model %s: %w", descriptor.ID, err)
		}
		log.Info(context.Background(), "model loaded",
			logger.String("model_id", string(descriptor.ID)),
			logger.String("version", descriptor.Version))
	}
	return nil
}

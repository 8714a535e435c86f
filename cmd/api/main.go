package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-customer-sync/internal/application"
	"shopify-customer-sync/internal/config"
	apiinfra "shopify-customer-sync/internal/infrastructure/api"
	"shopify-customer-sync/internal/infrastructure/cache"
	"shopify-customer-sync/internal/infrastructure/encryption"
	"shopify-customer-sync/internal/infrastructure/metrics"
	"shopify-customer-sync/internal/infrastructure/repository"
	"shopify-customer-sync/internal/infrastructure/session"
	shopifyinfra "shopify-customer-sync/internal/infrastructure/shopify"
	"shopify-customer-sync/internal/logger"
	"shopify-customer-sync/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	dotenvErr := config.LoadDotEnv()

	cfg, err := config.Load()
	log := logger.New("shopify-customer-sync", cfg.LogLevel)
	if dotenvErr != nil {
		log.Warn().Msg(".env file not found")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Credential storage
	repo, closeRepo, err := newCredentialRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to initialize credential store")
	}
	defer closeRepo()

	if cfg.Redis.Addr != "" {
		rdb := cache.New(cfg.Redis.Addr)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, credential cache disabled")
		} else {
			repo = cache.NewCachedCredentialRepository(repo, rdb, cfg.Redis.CacheTTL, log)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Credential cache enabled")
		}
	}

	var encryptionService ports.EncryptionService
	if cfg.EncryptionKey != "" {
		key, err := encryption.LoadKeyFromBase64(cfg.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid ENCRYPTION_KEY")
		}
		svc, err := encryption.NewAESService(key)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		encryptionService = svc
	} else {
		log.Warn().Msg("ENCRYPTION_KEY not set, access tokens are stored unencrypted")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Shopify
	shopifyClient := shopifyinfra.NewClient(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		shopifyinfra.Options{APIVersion: cfg.Shopify.APIVersion, Timeout: cfg.Shopify.Timeout},
		log,
	)
	tokenManager := shopifyinfra.NewTokenManager(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		cfg.Shopify.Scopes,
		cfg.CallbackURL(),
		&http.Client{Timeout: cfg.Shopify.Timeout},
		log,
	)

	// Application services
	credentialsService := application.NewCredentialsService(repo, encryptionService, log)
	customerSyncService := application.NewCustomerSyncService(shopifyClient, collector, log, cfg.Sync.Concurrency)
	storeService := application.NewStoreService(shopifyClient, log)

	// Sessions
	sessionStore, err := session.NewStore(cfg.Session.Secret, cfg.Session.ExternalTTL, cfg.Session.CookieSecure)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	authenticator := session.NewAuthenticator(sessionStore, credentialsService, cfg.Shopify.APIKey, cfg.Shopify.APISecret, log)

	handler, err := apiinfra.NewHandler(
		credentialsService,
		customerSyncService,
		storeService,
		sessionStore,
		tokenManager,
		cfg.Shopify.APIKey,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize handlers")
	}

	var frameAncestors []string
	if cfg.Shopify.CustomDomain != "" {
		frameAncestors = append(frameAncestors, "https://"+cfg.Shopify.CustomDomain)
	}

	router := apiinfra.NewRouter(handler, authenticator, collector, registry, apiinfra.RouterConfig{
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		FrameAncestors:     frameAncestors,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	log.Info().Str("port", cfg.HTTP.Port).Str("backend", cfg.Store.Backend).Msg("Starting API server")
	log.Info().Msg("Swagger documentation available at " + cfg.HTTP.AppURL + "/swagger/index.html")
	if err := serve(ctx, srv, ln, 10*time.Second); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped")
}

// serve runs srv on ln until ctx is done, then returns once Shutdown has drained in-flight requests
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newCredentialRepository opens the configured backend once and returns it with its close function
func newCredentialRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (ports.CredentialRepository, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := repository.NewMongoCredentialRepository(client.Database(cfg.Mongo.Database), cfg.Store.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")
		return repo, closeFn, nil

	case config.BackendMemory:
		log.Warn().Msg("Using in-memory credential store, data is lost on restart")
		return repository.NewMemoryCredentialRepository(), func() {}, nil

	default:
		client, err := repository.NewFirestoreClient(ctx, repository.FirestoreConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			ClientEmail:     cfg.Firebase.ClientEmail,
			PrivateKey:      cfg.Firebase.PrivateKey,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", cfg.Firebase.ProjectID).Msg("Connected to Firestore")
		return repository.NewFirestoreCredentialRepository(client, cfg.Store.Collection), func() { _ = client.Close() }, nil
	}
}

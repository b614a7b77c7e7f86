// Package main wires together the landing-page ingestion service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/api"
	"github.com/comparee-ai/landing-ingest/internal/config"
	"github.com/comparee-ai/landing-ingest/internal/ingest"
	"github.com/comparee-ai/landing-ingest/internal/logging"
	"github.com/comparee-ai/landing-ingest/internal/ping"
	memorypublisher "github.com/comparee-ai/landing-ingest/internal/publisher/memory"
	pubsubpublisher "github.com/comparee-ai/landing-ingest/internal/publisher/pubsub"
	"github.com/comparee-ai/landing-ingest/internal/sitemap"
	"github.com/comparee-ai/landing-ingest/internal/storage/gcs"
	"github.com/comparee-ai/landing-ingest/internal/storage/local"
	memorystorage "github.com/comparee-ai/landing-ingest/internal/storage/memory"
	"github.com/comparee-ai/landing-ingest/internal/storage/postgres"
	"github.com/comparee-ai/landing-ingest/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pages    store.LandingPageRepository
		idem     store.IdempotencyRepository
		logs     store.WebhookLogRepository
		products store.ProductRepository
		queue    store.ReviewQueueRepository
	)
	if cfg.DB.DSN != "" {
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}
		landingStore, err := postgres.NewLandingStoreWithPool(pool)
		if err != nil {
			logger.Fatal("landing store init failed", zap.Error(err))
		}
		idemStore, err := postgres.NewIdempotencyStoreWithPool(pool)
		if err != nil {
			logger.Fatal("idempotency store init failed", zap.Error(err))
		}
		logStore, err := postgres.NewWebhookLogStoreWithPool(pool)
		if err != nil {
			logger.Fatal("webhook log store init failed", zap.Error(err))
		}
		productStore, err := postgres.NewProductStoreWithPool(pool)
		if err != nil {
			logger.Fatal("product store init failed", zap.Error(err))
		}
		queueStore, err := postgres.NewReviewQueueStoreWithPool(pool)
		if err != nil {
			logger.Fatal("review queue store init failed", zap.Error(err))
		}
		pages, idem, logs, products, queue = landingStore, idemStore, logStore, productStore, queueStore
		logger.Info("using postgres stores")
	} else {
		pages = memorystorage.NewLandingStore()
		idem = memorystorage.NewIdempotencyStore()
		logs = memorystorage.NewWebhookLogStore()
		products = memorystorage.NewProductStore()
		queue = memorystorage.NewReviewQueueStore()
		logger.Warn("db.dsn not set, using in-memory stores")
	}

	var blobs sitemap.BlobStore
	if cfg.Sitemap.GCSBucket != "" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		blobs, err = gcs.New(client, gcs.Config{Bucket: cfg.Sitemap.GCSBucket})
		if err != nil {
			logger.Fatal("gcs blob store init failed", zap.Error(err))
		}
	} else {
		localBlobs, err := local.New(local.Config{BaseDir: cfg.Sitemap.LocalDir})
		if err != nil {
			logger.Fatal("local blob store init failed", zap.Error(err))
		}
		blobs = localBlobs
	}

	sitemapGen := sitemap.New(pages, blobs, sitemap.Config{
		BaseURL:  cfg.Server.BaseURL,
		MaxPages: cfg.Sitemap.MaxPages,
		Cooldown: time.Duration(cfg.Sitemap.CooldownSeconds) * time.Second,
	}, logger.Named("sitemap"))

	var pinger *ping.Pinger
	if cfg.Ping.Enabled {
		pinger = ping.New(
			cfg.Server.BaseURL,
			time.Duration(cfg.Ping.TimeoutSeconds)*time.Second,
			logger.Named("ping"),
		)
	}

	var events ingest.EventPublisher = memorypublisher.New()
	if cfg.PubSub.TopicName != "" {
		publisher, client, err := pubsubpublisher.Connect(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			logger.Fatal("pubsub connect failed", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		events = publisher
	}

	auth := ingest.NewAuthenticator(
		cfg.Webhook.PrimarySecret,
		cfg.Webhook.SecondarySecret,
		cfg.SignatureMaxSkew(),
	)

	ingestDeps := ingest.Deps{
		Auth:    auth,
		Pages:   pages,
		Idem:    idem,
		Logs:    logs,
		Sitemap: sitemapGen,
		Events:  events,
		Logger:  logger.Named("ingest"),
		IdemTTL: cfg.IdempotencyTTL(),
	}
	if pinger != nil {
		ingestDeps.Pinger = pinger
	}
	service := ingest.NewService(ingestDeps)

	apiServer := api.NewServer(api.Deps{
		Service:  service,
		Auth:     auth,
		Pages:    pages,
		Idem:     idem,
		Logs:     logs,
		Products: products,
		Queue:    queue,
		Pinger:   pinger,
		Logger:   logger.Named("api"),
	}, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

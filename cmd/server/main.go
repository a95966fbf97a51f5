// Command server runs the self-service registration service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"regdesk/internal/directory"
	"regdesk/internal/notify"
	"regdesk/internal/platform/config"
	"regdesk/internal/platform/database"
	"regdesk/internal/platform/httpserver"
	kafkaproducer "regdesk/internal/platform/kafka/producer"
	"regdesk/internal/platform/logger"
	platformredis "regdesk/internal/platform/redis"
	"regdesk/internal/ratelimit"
	"regdesk/internal/registration/events"
	"regdesk/internal/registration/handler"
	"regdesk/internal/registration/metrics"
	"regdesk/internal/registration/service"
	"regdesk/internal/registration/store"
	"regdesk/pkg/platform/middleware/admin"
	"regdesk/pkg/platform/middleware/metadata"
	"regdesk/pkg/platform/middleware/request"
	"regdesk/pkg/secrets"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Request store: postgres when configured, in-memory otherwise.
	var requests store.RequestStore
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		requests = store.NewPostgresStore(pool.DB())
		log.Info("using postgres request store")
	} else {
		requests = store.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory request store")
	}

	// Rate limit backend: redis when configured, in-process otherwise.
	var limitStore ratelimit.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("using redis rate limit store")
	} else {
		limitStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(limitStore, cfg.RateLimit.Requests, cfg.RateLimit.Window, log)

	// Directory admin credential comes from a mounted secret file, with an
	// environment variable fallback for development.
	adminPassword, err := secrets.Source{
		Path:   cfg.Directory.SecretFile,
		EnvKey: cfg.Directory.SecretEnv,
	}.Lookup()
	if err != nil {
		return err
	}
	dir := directory.NewLDAPClient(directory.Config{
		URL:           cfg.Directory.URL,
		BaseDN:        cfg.Directory.BaseDN,
		AdminUser:     cfg.Directory.AdminUser,
		AdminPassword: adminPassword,
		LookupTimeout: cfg.Directory.LookupTimeout,
		MutateTimeout: cfg.Directory.MutateTimeout,
	}, log)

	var sender notify.Sender
	if s := notify.NewSMTPSender(cfg.SMTP); s != nil {
		sender = s
	} else {
		log.Warn("SMTP disabled, all notifications go to the fallback log")
	}
	notifier := notify.New(sender, notify.NewFileLog(cfg.EmailLogPath), cfg.AdminEmail, log)

	producerCfg := kafkaproducer.DefaultConfig()
	producerCfg.Brokers = cfg.Kafka.Brokers
	producer, err := kafkaproducer.New(producerCfg)
	if err != nil {
		return err
	}
	var publisher *events.Publisher
	if producer != nil {
		defer producer.Close()
		publisher = events.NewPublisher(producer, cfg.Kafka.Topic, log)
		log.Info("publishing registration events", "topic", cfg.Kafka.Topic)
	}

	workflowMetrics := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(requests, dir, notifier, log,
		service.WithEvents(publisher),
		service.WithMetrics(workflowMetrics),
	)
	h := handler.New(svc, log)

	router := chi.NewRouter()
	router.Use(request.Recovery(log))
	router.Use(request.RequestID)
	router.Use(request.Logger(log))
	router.Use(metadata.ClientMetadata)

	router.Get("/healthz", h.Health)
	router.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter))
		h.RegisterPublic(r)
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(admin.Identity)
		h.RegisterAdmin(r)
	})
	router.Handle("/metrics", promhttp.Handler())

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

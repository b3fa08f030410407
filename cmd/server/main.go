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

	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"

	"orbit/internal/access"
	activityHandler "orbit/internal/activity/handler"
	activityService "orbit/internal/activity/service"
	analyticsHandler "orbit/internal/analytics/handler"
	analyticsService "orbit/internal/analytics/service"
	authHandler "orbit/internal/auth/handler"
	authMetrics "orbit/internal/auth/metrics"
	authService "orbit/internal/auth/service"
	clientHandler "orbit/internal/client/handler"
	clientService "orbit/internal/client/service"
	jwttoken "orbit/internal/jwt_token"
	"orbit/internal/notification"
	"orbit/internal/objectstore"
	"orbit/internal/plan"
	"orbit/internal/platform/config"
	"orbit/internal/platform/database"
	"orbit/internal/platform/health"
	"orbit/internal/platform/logger"
	"orbit/internal/platform/migrate"
	"orbit/internal/quota"
	"orbit/internal/seeder"
	subHandler "orbit/internal/subscription/handler"
	subMetrics "orbit/internal/subscription/metrics"
	subService "orbit/internal/subscription/service"
	"orbit/internal/subscription/stripe"
	tenantHandler "orbit/internal/tenant/handler"
	tenantMetrics "orbit/internal/tenant/metrics"
	tenantService "orbit/internal/tenant/service"
	httptransport "orbit/internal/transport/http"
	userHandler "orbit/internal/user/handler"
	userService "orbit/internal/user/service"
	"orbit/pkg/platform/middleware/metadata"
	"orbit/pkg/platform/middleware/request"
	"orbit/pkg/secrets"
)

type objectStore interface {
	Upload(ctx context.Context, obj objectstore.Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	log.Info("initializing orbit", "env", cfg.Env, "addr", cfg.Addr)

	healthHandler := health.New(cfg.Env)

	var (
		data *stores
		pool *database.Pool
	)
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := migrate.Up(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		var err error
		pool, err = database.New(ctx, database.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		})
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()
		healthHandler.RegisterCheck("database", pool.Health)
		prometheus.MustRegister(pool.Collector())
		data = postgresStores(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		data = memoryStores()
		if cfg.SeedDemoData {
			seed := seeder.New(data.tenants, data.users, data.clients, data.activities, secrets.NewHasher(cfg.BcryptCost), log)
			if _, err := seed.SeedAll(ctx); err != nil {
				return err
			}
		}
	}

	var objects objectStore
	if cfg.S3Bucket != "" {
		s3, err := objectstore.NewS3(ctx, objectstore.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			UsePathStyle:  cfg.S3UsePathStyle,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return err
		}
		healthHandler.RegisterCheck("s3", s3.HealthCheck)
		objects = s3
	} else {
		log.Warn("S3_BUCKET not set, keeping uploads in memory")
		objects = objectstore.NewInMemory()
	}

	var mailer notification.Mailer
	if cfg.SMTPHost != "" {
		smtp, err := notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return err
		}
		mailer = smtp
	} else {
		log.Warn("SMTP_HOST not set, logging outgoing mail")
		mailer = notification.NewLogMailer(log)
	}
	dispatcher := notification.NewDispatcher(mailer,
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics()),
		notification.WithWorkers(cfg.EmailWorkers),
		notification.WithQueueSize(cfg.EmailQueueSize),
		notification.WithRate(cfg.EmailRate, cfg.EmailWorkers),
	)
	dispatcher.Start()

	gate := access.NewGate(access.WithLogger(log), access.WithMetrics(access.NewMetrics()))
	quotas := quota.New(data.tenants,
		quota.WithLogger(log),
		quota.WithMetrics(quota.NewMetrics()),
		quota.WithCounter(quota.KindClients, data.clients),
		quota.WithCounter(quota.KindUsers, data.users),
	)
	hasher := secrets.NewHasher(cfg.BcryptCost)
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())

	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set, checkout requests will fail")
	}
	prices := plan.NewPriceTable(map[plan.Plan]string{
		plan.Pro:        cfg.StripeProPriceID,
		plan.Enterprise: cfg.StripeEnterprisePriceID,
	})
	billing := stripe.New(stripe.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	}, prices)
	subscriptions := subService.New(data.tenants, data.drafts, data.events, billing, data.tx, prices,
		subService.WithLogger(log),
		subService.WithMetrics(subMetrics.New()),
		subService.WithObjects(objects),
		subService.WithDraftTTL(cfg.CheckoutDraftTTL),
	)

	loc := cfg.SweepLocation()
	auth := authService.New(data.users, data.tenants, quotas, hasher, tokens, gate, data.tx,
		authService.WithLogger(log),
		authService.WithMetrics(authMetrics.New()),
	)
	users := userService.New(data.users, quotas, hasher, gate, data.tx, userService.WithLogger(log))
	clients := clientService.New(data.clients, data.users, data.tenants, quotas, dispatcher, gate, data.tx,
		clientService.WithLogger(log),
	)
	activities := activityService.New(data.activities, data.clients, data.users, quotas, objects, dispatcher, gate, data.tx,
		activityService.WithLogger(log),
		activityService.WithLocation(loc),
	)
	tenants := tenantService.New(data.tenants, data.users, data.clients, data.activities, objects, subscriptions, gate, data.tx,
		tenantService.WithLogger(log),
		tenantService.WithMetrics(tenantMetrics.New()),
	)
	analytics := analyticsService.New(data.clients, data.activities, data.users, data.tenants, gate,
		analyticsService.WithLogger(log),
	)

	scheduler := notification.NewScheduler(loc, log)
	sweep := notification.NewSweep(activityService.NewAgenda(data.activities, data.clients, data.users), dispatcher, loc, log)
	if err := scheduler.Add("daily-sweep", cfg.SweepSchedule, func(ctx context.Context) error {
		_, err := sweep.Run(ctx, time.Now().In(loc))
		return err
	}); err != nil {
		return err
	}
	if err := scheduler.Add("draft-purge", cfg.DraftPurgeSchedule, func(ctx context.Context) error {
		_, err := subscriptions.PurgeExpiredDrafts(ctx)
		return err
	}); err != nil {
		return err
	}
	scheduler.Start()

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		return err
	}
	authRoutes := authHandler.New(auth, log)
	subRoutes := subHandler.New(subscriptions, billing, gate, log)
	router := httptransport.NewRouter(
		httptransport.Config{
			RequestTimeout: cfg.RequestTimeout,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			Metadata:       proxies,
		},
		httptransport.Routes{
			Health:   healthHandler,
			Public:   []httptransport.PublicRegistrar{authRoutes},
			Webhooks: []httptransport.WebhookRegistrar{subRoutes},
			JSON: []httptransport.Registrar{
				authRoutes,
				subRoutes,
				userHandler.New(users, log),
				clientHandler.New(clients, log),
				analyticsHandler.New(analytics, log),
			},
			Multipart: []httptransport.Registrar{
				tenantHandler.New(tenants, log),
				activityHandler.New(activities, log),
			},
		},
		tokens.AccessValidator(),
		request.NewMetrics(),
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	scheduler.Stop(shutdownCtx)
	dispatcher.Close()
	if shutdownErr != nil {
		return shutdownErr
	}
	log.Info("server stopped")
	return nil
}

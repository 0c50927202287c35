package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	identityevents "github.com/pillflow/pillflow-backend/internal/identity/events"
	identityhandler "github.com/pillflow/pillflow-backend/internal/identity/handler"
	"github.com/pillflow/pillflow-backend/internal/identity/jwt"
	identityrepo "github.com/pillflow/pillflow-backend/internal/identity/repository"
	identityservice "github.com/pillflow/pillflow-backend/internal/identity/service"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/consumers"
	pharmacyevents "github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/handler"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/repository"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/service"
	"github.com/pillflow/pillflow-backend/pkg/cache"
	"github.com/pillflow/pillflow-backend/pkg/config"
	"github.com/pillflow/pillflow-backend/pkg/database"
	"github.com/pillflow/pillflow-backend/pkg/httputil"
	"github.com/pillflow/pillflow-backend/pkg/logger"
	"github.com/pillflow/pillflow-backend/pkg/messaging"
)

const serviceName = "pillflow-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Pillflow Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Database.Redacted()).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("database", cfg.Database.Redacted()).Msg("connected to database")

	if cfg.Database.AutoMigrate {
		if _, err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()
	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}

	// Dashboard cache. Redis being down only costs cache hits.
	redisClient := cache.NewClient(&cfg.Redis)
	kv := cache.NewRedisKVStore(redisClient)
	defer kv.Close()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, dashboard will run uncached")
	}
	pingCancel()

	// Event publishers
	identityPublisher, err := identityevents.NewIdentityEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create identity event publisher")
	}
	pharmacyPublisher, err := pharmacyevents.NewPharmacyEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pharmacy event publisher")
	}

	// Repositories
	userRepo := identityrepo.NewUserRepository(db)
	sessionRepo := identityrepo.NewSessionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	scanRepo := repository.NewScanRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Services
	jwtManager := jwt.NewManager(&cfg.JWT)
	hub := identityservice.NewSessionHub(log)
	defer hub.Close()
	identityService := identityservice.NewIdentityService(
		userRepo,
		sessionRepo,
		jwtManager,
		identityservice.NewProviderClient(&cfg.Providers, log),
		hub,
		identityPublisher,
		log,
	)

	loc := cfg.Server.Location()
	dashboardService := service.NewDashboardService(customerRepo, scanRepo, kv, service.DashboardOptions{
		CacheTTL:  cfg.Dashboard.CacheTTL,
		GraphDays: cfg.Dashboard.GraphDays,
		Location:  loc,
	}, log)
	customerService := service.NewCustomerService(customerRepo, dashboardService, pharmacyPublisher, log)
	scanService := service.NewScanService(customerRepo, scanRepo, dashboardService, pharmacyPublisher, log)
	noteService := service.NewNoteService(noteRepo, pharmacyPublisher, log)
	profileService := service.NewProfileService(profileRepo, userRepo, pharmacyPublisher, log)

	// Handlers
	authHandler := identityhandler.NewAuthHandler(identityService, log)
	pharmacy := &handler.Handlers{
		Customers: handler.NewCustomerHandler(customerService, scanService, log),
		Scans:     handler.NewScanHandler(scanService, loc, log),
		Notes:     handler.NewNoteHandler(noteService, log),
		Profile:   handler.NewProfileHandler(profileService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, loc, log),
	}

	// Cancelled once the server has drained; consumers and background jobs stop with it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rmq.Watch(ctx)

	identityConsumer, err := consumers.NewIdentityEventConsumer(rmq, profileService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create identity event consumer")
	}
	if err := identityConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start identity event consumer")
	}

	go cleanSessions(ctx, sessionRepo, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"redis":    kv.Health(r.Context()),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireAuth(jwtManager))
			// The session stream is long-lived and must not be cut by the timeout.
			authHandler.RegisterAuthenticated(r)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
				pharmacy.Register(r)
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout would close session streams; request handlers are
		// bounded by middleware.Timeout instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Session streams are hijacked connections that Shutdown does not wait
	// for; closing the hub ends them.
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()

	log.Info().Msg("server stopped")
}

// cleanSessions drops expired and revoked sessions every hour
func cleanSessions(ctx context.Context, sessions *identityrepo.SessionRepository, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to clean expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("removed", n).Msg("expired sessions cleaned")
			}
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/socialgraph/internal/config"
	"github.com/HammerMeetNail/socialgraph/internal/database"
	"github.com/HammerMeetNail/socialgraph/internal/handlers"
	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/metrics"
	"github.com/HammerMeetNail/socialgraph/internal/middleware"
	"github.com/HammerMeetNail/socialgraph/internal/migrations"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting social graph server...", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), migrations.FS)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize the engine and its collaborators
	dbAdapter := services.NewPoolAdapter(db.Pool)
	store := services.NewFriendshipRepository(dbAdapter)
	userDirectory := services.NewPostgresUserDirectory(dbAdapter)
	users := services.NewCachedUserDirectory(userDirectory, cfg.Friendship.UserCacheSize, cfg.Friendship.UserCacheTTL)
	appMetrics := metrics.New()

	friendshipService := services.NewFriendshipService(store, users)
	friendshipService.SetLogger(logger)
	friendshipService.SetRecorder(appMetrics)
	friendshipService.SetCreateAttempts(cfg.Friendship.CreateAttempts)
	friendshipService.SetNotifyTimeout(cfg.Friendship.NotifyTimeout)

	locker, err := newPairLocker(cfg.Friendship, redisDB.Client)
	if err != nil {
		return err
	}
	if locker != nil {
		friendshipService.SetPairLocker(locker)
		logger.Info("Friend request pair lock enabled", map[string]interface{}{"mode": cfg.Friendship.PairLock})
	}

	var dispatcher *services.NotificationDispatcher
	if cfg.Friendship.NotifyEnabled {
		dispatcher, err = services.NewNotificationDispatcher(cfg.Friendship.NotifyWorkers, logger)
		if err != nil {
			return fmt.Errorf("creating notification dispatcher: %w", err)
		}
		provider := services.NewEmailProvider(&cfg.Email)
		notifier := services.NewEmailNotifier(userDirectory, provider, cfg.Email.BaseURL, logger)
		notifier.SetRateLimit(cfg.Friendship.NotifyRate, cfg.Friendship.NotifyBurst)
		friendshipService.SetNotifier(notifier)
		friendshipService.SetAsync(dispatcher.Go)
		logger.Info("Friend request notifications enabled", map[string]interface{}{
			"provider": cfg.Email.Provider,
			"workers":  cfg.Friendship.NotifyWorkers,
		})
	}

	// Initialize handlers and middleware
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService, logger)

	actor := middleware.NewActorMiddleware(cfg.Server.ActorHeader)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)
	createLimiter := middleware.NewFriendRequestRateLimiter(redisDB.Client, cfg.Server.RequestRateLimit)

	mux := http.NewServeMux()
	registerRoutes(mux, routes{
		health:       healthHandler,
		friendships:  friendshipHandler,
		metrics:      appMetrics.Handler(),
		requireActor: actor.RequireActor,
		limitCreate:  createLimiter.Middleware,
	})

	// Build middleware chain (order matters: outermost last)
	var handler http.Handler = mux
	handler = requestLogger.Apply(handler)
	handler = actor.Authenticate(handler)
	handler = securityHeaders.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if dispatcher != nil {
			if err := dispatcher.Close(10 * time.Second); err != nil {
				logger.Warn("Pending notifications were dropped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	_ = logger.Sync()
	logger.Info("Server stopped")
	return nil
}

type routes struct {
	health       *handlers.HealthHandler
	friendships  *handlers.FriendshipHandler
	metrics      http.Handler
	requireActor func(http.Handler) http.Handler
	limitCreate  func(http.Handler) http.Handler
}

func registerRoutes(mux *http.ServeMux, r routes) {
	// Health and metrics endpoints (no actor, no rate limit)
	mux.HandleFunc("GET /health", r.health.Health)
	mux.HandleFunc("GET /ready", r.health.Ready)
	mux.HandleFunc("GET /live", r.health.Live)
	mux.Handle("GET /metrics", r.metrics)

	h := r.friendships
	withActor := func(fn http.HandlerFunc) http.Handler {
		return r.requireActor(fn)
	}

	mux.Handle("POST /api/friendships", r.requireActor(r.limitCreate(http.HandlerFunc(h.Create))))
	mux.Handle("GET /api/friendships/requests", withActor(h.Requests))
	mux.Handle("GET /api/friendships/common", withActor(h.Common))
	mux.Handle("GET /api/friendships/user/{id}", withActor(h.ListForUser))
	mux.Handle("DELETE /api/friendships/users", withActor(h.DeleteByPair))
	mux.Handle("GET /api/friendships/{id}", withActor(h.Get))
	mux.Handle("PUT /api/friendships/{id}/accept", withActor(h.Accept))
	mux.Handle("PUT /api/friendships/{id}/reject", withActor(h.Reject))
	mux.Handle("DELETE /api/friendships/{id}", withActor(h.DeleteByID))
}

// newPairLocker returns nil when the store's unique index is trusted alone.
func newPairLocker(cfg config.FriendshipConfig, client *redis.Client) (services.PairLocker, error) {
	switch cfg.PairLock {
	case "", "none":
		return nil, nil
	case "local":
		return services.NewLocalPairLocker(), nil
	case "redis":
		return services.NewRedisPairLocker(client, cfg.PairLockTTL), nil
	default:
		return nil, fmt.Errorf("unknown pair lock mode %q", cfg.PairLock)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/fete/api/internal/cache"
	"github.com/forgo/fete/api/internal/config"
	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/events"
	"github.com/forgo/fete/api/internal/handler"
	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/repository"
	"github.com/forgo/fete/api/internal/service"
	"github.com/forgo/fete/api/internal/storage"
	"github.com/forgo/fete/api/pkg/jwt"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Optional Redis: menu cache and shared idempotency store
	var menuCache service.MenuCache
	var idempotencyStore middleware.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			slog.Error("failed to connect to redis", slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
			os.Exit(1)
		}

		menuCache = cache.NewMenuCache(redisClient, cfg.Redis.MenuTTL)
		idempotencyStore = middleware.NewRedisIdempotencyStore(redisClient, middleware.DefaultIdempotencyTTL)
		slog.Info("redis enabled", slog.String("addr", cfg.Redis.Addr))
	} else {
		memoryStore := middleware.NewMemoryIdempotencyStore(middleware.IdempotencyConfig{})
		defer memoryStore.Stop()
		idempotencyStore = memoryStore
	}

	// Optional Kafka: domain events for bookings and menu changes
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
		slog.Info("kafka publishing enabled",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic),
		)
	} else if cfg.IsDevelopment() {
		publisher = events.LogPublisher{}
	}

	blobs := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Initialize services
	guard := service.NewGuard()

	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:  userRepo,
		Tokens: jwtService,
		Blobs:  blobs,
	})
	eventService := service.NewEventService(eventRepo, guard)
	vendorService := service.NewVendorService(userRepo, service.NewGeoService(), guard)
	menuService := service.NewMenuService(service.MenuServiceConfig{
		Repo:      menuRepo,
		Cache:     menuCache,
		Blobs:     blobs,
		Publisher: publisher,
		Guard:     guard,
	})
	offeringService := service.NewOfferingService(offeringRepo, blobs, guard)
	bookingService := service.NewBookingService(service.BookingServiceConfig{
		Repo:      bookingRepo,
		Events:    eventRepo,
		Offerings: offeringRepo,
		Publisher: publisher,
		Guard:     guard,
	})
	notificationService := service.NewNotificationService(userRepo)

	// Initialize handlers and routes
	mux := handler.NewRouter(handler.RouterConfig{
		Auth:          handler.NewAuthHandler(authService),
		Events:        handler.NewEventHandler(eventService),
		Vendors:       handler.NewVendorHandler(vendorService),
		Menu:          handler.NewMenuHandler(menuService, service.DefaultQRGenerator{}, cfg.Server.PublicBaseURL),
		Offerings:     handler.NewOfferingHandler(offeringService),
		Bookings:      handler.NewBookingHandler(bookingService),
		Notification:  handler.NewNotificationHandler(notificationService),
		Health:        handler.NewHealthHandler(db),
		Uploads:       handler.UploadsHandler(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix),
		Resolver:      authService,
		Idempotency:   idempotencyStore,
		UploadsPrefix: cfg.Uploads.PublicPrefix,
	})

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	// Apply middleware chain
	h := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins}),
		middleware.RateLimit(rateLimiter),
		middleware.Compress,
	)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server stopped")
}

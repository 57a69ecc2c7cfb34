package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cashflow/src/config"
	"github.com/username/cashflow/src/database"
	"github.com/username/cashflow/src/events"
	"github.com/username/cashflow/src/handlers"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/processors"
	"github.com/username/cashflow/src/security"
	"github.com/username/cashflow/src/services"
	"golang.org/x/time/rate"
)

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func main() {
	issueToken := flag.String("issue-token", "", "print an access token for the given subject and exit")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
	if *issueToken != "" {
		token, err := authService.GenerateToken(*issueToken)
		if err != nil {
			stdlog.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger.L.Info("CashFlow server starting...")
	if !config.Cfg.AuthDisabled && len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, database.Options{
		Driver:       config.Cfg.DatabaseDriver,
		DatabasePath: config.Cfg.DatabasePath,
		DatabaseURL:  config.Cfg.DatabaseURL,
	})
	if err != nil {
		logger.L.Error("Failed to open transaction store", "driver", config.Cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.L.Error("Failed to close transaction store", "error", err)
		}
	}()
	logger.L.Info("Transaction store ready.", "driver", config.Cfg.DatabaseDriver)

	bus := events.NewBus()
	hub := events.NewHub(originChecker(config.Cfg.AllowedOrigins))
	hub.Start()
	defer hub.Stop()
	bus.Subscribe(hub.Publish)

	logger.L.Info("Initializing services and handlers...")
	viewCache := cache.New(config.Cfg.ViewCacheTTL, services.ViewCacheCleanupInterval)
	viewService := services.NewViewService(store, processors.NewViewProcessor(), processors.NewSummaryProcessor(), viewCache, nil)
	projectionService := services.NewProjectionService(store, processors.NewRecurrenceProcessor(), viewService, bus, nil, config.Cfg.ProjectionWorkers)
	notificationService := services.NewNotificationService(config.Cfg, nil)
	transactionService := services.NewTransactionService(store, viewService, bus, nil)

	refreshService := services.NewRefreshService(projectionService, viewService, notificationService, config.Cfg.HorizonDays)
	refreshService.OnView(hub.BroadcastView)
	hub.SetSnapshot(refreshService.Latest)
	hub.SetIdentify(func(r *http.Request) string {
		owner, _ := handlers.SubjectFromContext(r.Context())
		return owner
	})
	bus.Subscribe(refreshService.HandleEvent)

	if config.Cfg.ProjectionInterval > 0 {
		go refreshService.Run(ctx, config.Cfg.ProjectionInterval)
	} else {
		logger.L.Info("Background projection disabled (PROJECTION_INTERVAL=0)")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Transactions:   transactionService,
		Views:          refreshService,
		Projector:      refreshService,
		HorizonDays:    config.Cfg.HorizonDays,
		Auth:           authService,
		AuthDisabled:   config.Cfg.AuthDisabled,
		Limiter:        rate.NewLimiter(rate.Limit(config.Cfg.RateLimitPerSecond), config.Cfg.RateLimitBurst),
		AllowedOrigins: config.Cfg.AllowedOrigins,
		Events:         hub.ServeWS,
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.L.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	}
	logger.L.Info("Server stopped gracefully.")
}

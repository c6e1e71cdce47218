package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/agora-be/internal/api"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/config"
	"github.com/isdelr/agora-be/internal/database"
	"github.com/isdelr/agora-be/internal/graph"
	"github.com/isdelr/agora-be/internal/logger"
	"github.com/isdelr/agora-be/internal/monitoring"
	"github.com/isdelr/agora-be/internal/projection"
	"github.com/isdelr/agora-be/internal/services"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/isdelr/agora-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.Production())

	// Set up the store
	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	eventService := services.NewEventService(st, hub)
	userService := services.NewUserService(st, projection.NewResolver(st), eventService)
	topicService := services.NewTopicService(st, eventService)
	followService := services.NewFollowService(graph.NewManager(st), userService, topicService, eventService)
	credentialService := services.NewCredentialService(st, issuer)

	// Set up and run the background edge auditor
	var scheduler *monitoring.Scheduler
	if cfg.AuditSchedule != "" {
		scheduler, err = monitoring.NewScheduler(cfg.AuditSchedule, monitoring.NewEdgeAuditor(st, eventService))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize scheduler")
		}
		scheduler.Start()
	}

	loginLimiter := api.NewIPRateLimiter(cfg.LoginRate, int(cfg.LoginRate)+1)
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				loginLimiter.Cleanup(5 * time.Minute)
			case <-stopCleanup:
				return
			}
		}
	}()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Users:        userService,
		Credentials:  credentialService,
		Topics:       topicService,
		Follow:       followService,
		Events:       eventService,
		Hub:          hub,
		Issuer:       issuer,
		LoginLimiter: loginLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.Production(),
		TrustProxy:   cfg.TrustProxy,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("driver", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop() // Stop the edge auditor
	}
	close(stopCleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

// openStore connects the configured store driver.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil

	case config.DriverMongo:
		db, client, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewMongoStore(ctx, client, db)

	default:
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return store.NewSQLiteStore(db), nil
	}
}

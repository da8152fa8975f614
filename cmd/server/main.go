package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	h "github.com/gorilla/handlers"

	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/config"
	"github.com/craftplan/craftplan-api/internal/handlers"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/middleware"
	"github.com/craftplan/craftplan-api/internal/migration"
	"github.com/craftplan/craftplan-api/internal/notification"
	"github.com/craftplan/craftplan-api/internal/repository"
	"github.com/craftplan/craftplan-api/internal/routes"
	"github.com/craftplan/craftplan-api/internal/stats"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORS.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	accountRepo := repository.NewAccountRepository(app.db)
	tenantRepo := repository.NewTenantRepository(app.db)
	userRepo := repository.NewUserRepository(app.db)
	roleRepo := repository.NewRoleRepository(app.db)
	inviteRepo := repository.NewInvitationRepository(app.db)
	requestRepo := repository.NewAccessRequestRepository(app.db)
	projectRepo := repository.NewProjectRepository(app.db)
	statsRepo := repository.NewStatsRepository(app.db)
	notificationRepo := repository.NewNotificationRepository(app.db)

	// Core services
	provider := identity.NewLocalProvider(accountRepo, app.config.JWTSecret, app.config.SessionTTL, logger)
	resolver := authz.NewResolver(userRepo, tenantRepo)
	evaluator := authz.NewEvaluator(roleRepo)
	statsService := stats.NewService(statsRepo, logger)
	notificationService := notification.NewService(notificationRepo, logger)

	// Mailer for invites; fall back to logging when SMTP is not set up.
	var mailer notification.InviteMailer
	smtpMailer, err := notification.NewSMTPInviteMailer(app.config.Email)
	if err != nil {
		logger.Warn().Err(err).Msg("smtp not configured, invite emails will be logged")
		mailer = notification.NewLogInviteMailer(logger)
	} else {
		mailer = smtpMailer
	}

	// Handlers
	routeHandlers := routes.Handlers{
		Auth:   handlers.NewAuthHandler(provider, userRepo, resolver, evaluator, logger),
		Tenant: handlers.NewTenantHandler(tenantRepo, userRepo, roleRepo, statsService, logger),
		Invite: handlers.NewInviteHandler(handlers.InviteHandlerDeps{
			InviteRepo:    inviteRepo,
			TenantRepo:    tenantRepo,
			UserRepo:      userRepo,
			RoleRepo:      roleRepo,
			Provider:      provider,
			Stats:         statsService,
			Notifications: notificationService,
			Mailer:        mailer,
			TokenTTL:      app.config.Invite.TTL,
			URLTemplate:   app.config.Invite.URLTemplate,
		}, logger),
		AccessRequest: handlers.NewAccessRequestHandler(requestRepo, tenantRepo, userRepo, roleRepo, statsService, notificationService, logger),
		Project:       handlers.NewProjectHandler(projectRepo, statsService, logger),
		Notification:  handlers.NewNotificationHandler(notificationService, logger),
	}

	return routes.NewRouter(routeHandlers, provider, resolver, evaluator, logger)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}

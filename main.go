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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"clinic-booking-server/internal/cache"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/events"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/repository"
	"clinic-booking-server/internal/routes"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment booking API server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", true, "Apply schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Str("driver", cfg.Database.Driver).Msg("schema migrated")
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.IsDev(),
	})
}

func runServer(migrate bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	logger := newLogger(cfg)

	// Database
	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if migrate {
		if err := models.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Token denylist
	var denylist cache.Denylist = cache.Nop{}
	if cfg.Redis.Addr != "" {
		redisDenylist, err := cache.NewRedisDenylist(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisDenylist.Close()
		denylist = redisDenylist
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	// Domain events
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing domain events")
	}
	defer publisher.Close()

	// Repositories and services
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	tokens := utils.NewTokenManager(cfg)
	accounts := services.NewAccountService(users, sessions, tokens, denylist, logger)
	appointments := services.NewAppointmentService(appointmentRepo, publisher, logger)
	payments := services.NewPaymentService(paymentRepo, appointmentRepo, publisher, cfg.ConsultationFee, logger)

	// Router
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:         handlers.NewAuthHandler(accounts, !cfg.IsDev(), time.Duration(cfg.JWTRefreshExpirationHours)*time.Hour),
		Appointments: handlers.NewAppointmentHandler(appointments),
		Payments:     handlers.NewPaymentHandler(payments),
	}, middleware.AuthMiddleware(tokens, accounts))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

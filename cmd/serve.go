package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/eventhub/api"
	"example.com/eventhub/config"
	"example.com/eventhub/internal/cache"
	"example.com/eventhub/internal/database"
	"example.com/eventhub/internal/messaging"
	"example.com/eventhub/internal/repository"
	"example.com/eventhub/internal/service"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	// Serve command flags
	disableNewRelic bool
	serverPort      int
	gracefulTimeout int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the EventHub API server that handles event management,
participant registration, approval decisions, notifications, and
dashboard analytics.

The server respects the configuration in config.yaml or specified via the --config flag.
It will gracefully shut down on receiving SIGINT or SIGTERM signals.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
}

// startServer initializes and starts the API server
func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override config with command line flags if provided
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	// Initialize database with retry logic
	gdb, err := connectWithRetry(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				log.WithField("error", closeErr.Error()).Error("Error closing database connection")
			}
		}
	}()

	log.Info("Running database migrations...")
	if err := database.AutoMigrate(gdb); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis cache client
	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing Redis connection")
		}
	}()

	// Initialize notification publisher
	log.Info("Connecting to message broker...")
	publisher, err := messaging.NewPublisher(cfg.ServiceBus)
	if err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	defer func() {
		if err := publisher.Close(context.Background()); err != nil {
			log.WithField("error", err.Error()).Error("Error closing messaging connection")
		}
	}()

	// Initialize New Relic if enabled
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && !disableNewRelic {
		log.Info("Initializing New Relic monitoring...")
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			log.Warnf("Failed to initialize New Relic: %v", err)
		}
	}

	// Create repositories
	log.Info("Initializing repositories...")
	eventRepo := repository.NewEventRepository(gdb)
	participationRepo := repository.NewParticipationRepository(gdb)
	notificationRepo := repository.NewNotificationRepository(gdb)
	subjectRepo := repository.NewSubjectRepository(gdb)

	// Create services
	log.Info("Initializing service layer...")
	lifecycle := service.NewLifecycleService(
		eventRepo,
		participationRepo,
		notificationRepo,
		subjectRepo,
		redisClient,
		publisher,
		log,
		service.LifecycleConfig{
			StrictTransitions: cfg.Lifecycle.StrictTransitions,
			QueryTimeout:      cfg.Database.QueryTimeout,
			NotifyQueue:       cfg.ServiceBus.QueueName,
		},
	)
	notifications := service.NewNotificationService(notificationRepo, cfg.Database.QueryTimeout)
	analytics := service.NewAnalyticsService(eventRepo, participationRepo, subjectRepo, cfg.Database.QueryTimeout)

	// Create and initialize the server
	log.Info("Initializing API server...")
	server := api.NewServer(cfg, log, nrApp, lifecycle, notifications, analytics, redisClient)

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server...")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-stop
	log.Infof("Received signal %s, shutting down gracefully...", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()

	log.Info("Shutting down HTTP server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	log.Info("Server shutdown complete")
}

// connectWithRetry opens the database connection, retrying with
// exponential backoff while the database comes up
func connectWithRetry(cfg *config.Config) (*gorm.DB, error) {
	maxRetries := 5
	retryInterval := time.Second

	var gdb *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		gdb, err = database.Connect(cfg.Database)
		if err == nil {
			return gdb, nil
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}
	return nil, err
}

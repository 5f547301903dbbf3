// @title           Interior Design Backend API
// @version         1.0.0
// @description     Backend API for AI interior design. Restyles and enhances room photos with hosted Replicate models, tracks plan usage and handles Stripe subscriptions.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a Supabase JWT.

package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76/client"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"interior-design-backend/docs"
	"interior-design-backend/internal/billing"
	"interior-design-backend/internal/cache"
	"interior-design-backend/internal/config"
	"interior-design-backend/internal/database"
	"interior-design-backend/internal/events"
	"interior-design-backend/internal/generation"
	"interior-design-backend/internal/handlers"
	"interior-design-backend/internal/logger"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/replicate"
	"interior-design-backend/internal/services"
	"interior-design-backend/internal/storage"
	"interior-design-backend/internal/supabase"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	// Database is optional; account routes answer 500 without it.
	var dbClient *supabase.DatabaseClient
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set. Migrations skipped, usage and projects unavailable")
	} else {
		migrator, err := database.NewMigrator(cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize migrator")
		} else {
			if err := migrator.Run(); err != nil {
				log.WithError(err).Warn("Migration failed")
			}
			migrator.Close()
		}

		dbClient, err = supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize database client")
			dbClient = nil
		} else {
			defer dbClient.Close()
		}
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize redis client")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	statusCache := cache.NewCache[models.SubscriptionStatusResponse](redisClient, "subscription-status", cfg.Usage.CacheTTL)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to kafka, job events disabled")
		} else {
			publisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		}
	}
	defer publisher.Close()

	objectStore, err := newObjectStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize object storage")
	}

	tempStore, err := storage.NewTempStore(filepath.Join(cfg.UploadDir, "interior-design-uploads"))
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload directory")
	}
	log.WithField("dir", tempStore.Dir()).Info("Upload directory ready")

	// Generation chains
	replicateClient := replicate.NewClient(cfg.Replicate.BaseURL, cfg.Replicate.APIKey, cfg.Replicate.RequestTimeout)
	poller := generation.NewPoller(cfg.Replicate.PollInterval, cfg.Replicate.MaxPolls, log)
	var designChain, enhanceChain *generation.Chain
	if cfg.DemoMode {
		log.Warn("DEMO_MODE is on: generation echoes the input image and no model is called")
		demo := generation.NewDemoStrategy()
		designChain = generation.NewChain(poller, log, demo)
		enhanceChain = generation.NewChain(poller, log, demo)
	} else {
		designChain = generation.NewChain(poller, log,
			generation.NewDesignStrategy(replicateClient, cfg.Replicate.DesignModelVersion),
			generation.NewBackupDesignStrategy(replicateClient, cfg.Replicate.BackupModelVersion),
		)
		enhanceChain = generation.NewChain(poller, log,
			generation.NewEnhanceStrategy(replicateClient, cfg.Replicate.EnhanceModelVersion),
		)
		if !replicateClient.Configured() {
			log.Warn("REPLICATE_API_KEY not set. Generation requests will be rejected")
		}
	}
	ready := cfg.DemoMode || replicateClient.Configured()

	// Services
	designService := services.NewDesignService(tempStore, objectStore, designChain, enhanceChain, publisher, ready, log)

	var usageService *services.UsageService
	var projectService *services.ProjectService
	var subscriptionStore billing.SubscriptionStore
	var dbPinger handlers.Pinger
	if dbClient != nil {
		usageService = services.NewUsageService(dbClient, statusCache, cfg.Usage.FreePlanMaxUsage, log)
		projectService = services.NewProjectService(dbClient, log)
		subscriptionStore = dbClient
		dbPinger = dbClient
	}

	var checkoutSessions billing.CheckoutSessions
	if cfg.Stripe.SecretKey != "" {
		sc := client.New(cfg.Stripe.SecretKey, nil)
		checkoutSessions = sc.CheckoutSessions
	} else {
		log.Warn("STRIPE_SECRET_KEY not set. Checkout is unavailable")
	}
	billingService := billing.NewService(checkoutSessions, subscriptionStore, statusCache, cfg.Stripe, cfg.Usage.FreePlanMaxUsage, log)

	// Handlers
	designHandler := handlers.NewDesignHandler(designService, usageService, tempStore, cfg.MaxUploadSize, log)
	healthHandler := handlers.NewHealthHandler(cfg, dbPinger)
	billingHandler := handlers.NewBillingHandler(billingService, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(usageService)
	projectsHandler := handlers.NewProjectsHandler(projectService)

	// Setup router
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadSize
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	if !cfg.IsProduction() {
		pprof.Register(router)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	api.GET("/health", healthHandler.Health)
	api.POST("/generate-design", designHandler.GenerateDesign)
	api.POST("/enhance-image", designHandler.EnhanceImage)

	// Webhook (no auth, verified by Stripe signature)
	api.POST("/stripe-webhook", billingHandler.Webhook)

	account := api.Group("")
	account.Use(middleware.AuthMiddleware(cfg.Supabase.JWTSecret))
	account.POST("/stripe-checkout", billingHandler.Checkout)
	account.GET("/subscription-status", subscriptionHandler.Status)
	account.POST("/update-usage", subscriptionHandler.UpdateUsage)
	account.POST("/save-project", projectsHandler.SaveProject)
	account.GET("/projects", projectsHandler.ListProjects)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Server shutdown")
	}
}

func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
			cfg.Minio.Bucket, cfg.Minio.PublicURL, cfg.Minio.UseSSL)
	}

	supabaseClient, err := supabase.NewClient(&cfg.Supabase)
	if err != nil {
		return nil, err
	}
	return supabase.NewStorageClient(supabaseClient, cfg.Supabase.StorageBucket), nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"govbid/auth"
	"govbid/internal/bid"
	"govbid/internal/config"
	"govbid/internal/db"
	"govbid/internal/domain"
	"govbid/internal/events"
	"govbid/internal/fetch"
	"govbid/internal/llm"
	"govbid/internal/logger"
	"govbid/internal/middleware"
	"govbid/internal/observability"
	"govbid/internal/payment"
	"govbid/internal/pipeline"
	"govbid/internal/rfp"
	"govbid/internal/scoring"
	"govbid/internal/storage"
	"govbid/internal/user"
	"govbid/internal/utils"
	"govbid/internal/worker"
	"govbid/redis"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	shutdownTracing := observability.Init(context.Background(), log, observability.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		Environment: cfg.Environment,
	})

	// Connect to database
	if err := db.ConnectDb(); err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer db.CloseDb()

	// Migrate database schema
	if err := db.Migrate(db.AppDb); err != nil {
		log.Fatal("database migration failed", "error", err)
	}

	// Initialize Redis; nil means single-instance mode
	redisClient := redis.InitRedis(cfg.RedisAddress, log)
	defer redisClient.Close()

	auth.SetSecret(cfg.JWTSecret)
	if err := utils.RegisterValidators(); err != nil {
		log.Fatal("validator registration failed", "error", err)
	}

	store, err := storage.NewGCS(context.Background(), log, storage.Config{
		RFPBucket:      cfg.RFPBucket,
		DocumentBucket: cfg.DocumentBucket,
		EmulatorHost:   cfg.StorageEmulatorHost,
	})
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal("object storage unavailable", "error", err)
		}
		log.Warn("object storage unavailable, using in-memory store", "error", err)
		store = storage.NewMemory()
	}

	pool := worker.NewWorkerPool(cfg.WorkerCount, cfg.WorkerCount*16, log)

	hub := events.NewHub(log)
	bus := events.NewBus(hub, redisClient, log)
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	bus.Start(busCtx)

	llmClient := llm.NewClient(llm.Config{APIKey: cfg.AnthropicAPIKey}, log)
	fetcher := fetch.NewClient(30 * time.Second)
	table := scoring.DefaultTable()
	prompts := pipeline.DefaultPrompts()

	// Initialize repositories
	bidRepo := bid.NewRepository(db.AppDb)
	jobRepo := pipeline.NewJobRepository(db.AppDb)
	userRepo := user.NewRepository(db.AppDb)

	// Pipeline
	queue := pipeline.NewQueue(jobRepo, pool, bus, cfg.JobMaxAttempts, log)
	parser := pipeline.NewParser(bidRepo, store, fetcher, llmClient, cfg.ExtractModel, prompts, queue, log)
	drafter := pipeline.NewDrafter(bidRepo, userRepo, llmClient, cfg.DraftModel, prompts, log)
	queue.Register(domain.JobKindParseRFP, parser.Handle)
	queue.Register(domain.JobKindGenerateProposal, drafter.Handle)
	if n, err := queue.Recover(context.Background()); err != nil {
		log.Error("pipeline recovery failed", "error", err)
	} else if n > 0 {
		log.Info("resumed unfinished pipeline jobs", "count", n)
	}

	// Initialize services
	bidService := bid.NewService(bidRepo, store, redisClient, table, log)
	rfpService := rfp.NewService(bidRepo, store, queue, table, log)
	paymentService := payment.NewService(bidRepo, payment.NewStripeProvider(payment.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		PriceID:   cfg.StripePriceID,
		SiteURL:   cfg.SiteURL,
	}), cfg.StripeWebhookSecret, log)
	userService := user.NewService(userRepo, redisClient, log)
	jobService := pipeline.NewService(bidRepo, jobRepo)

	// Initialize handlers
	bidHandler := bid.NewHandler(bidService)
	rfpHandler := rfp.NewHandler(rfpService)
	paymentHandler := payment.NewHandler(paymentService)
	userHandler := user.NewHandler(userService)
	jobHandler := pipeline.NewHandler(jobService)
	eventHandler := events.NewHandler(hub)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		otelgin.Middleware(observability.ServiceName),
		middleware.TraceContext(),
		middleware.RequestLogger(log),
		middleware.ErrorHandler(log),
		gin.Recovery(),
	)

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id", "X-Trace-Id"},
		AllowCredentials: false,
	}
	if cfg.IsProduction() {
		corsConfig.AllowOrigins = []string{cfg.SiteURL}
	} else {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// signed by Stripe, not by the identity provider
	router.POST("/stripe/webhook", paymentHandler.Webhook)

	authMw := &middleware.Auth{Revocations: redisClient}
	api := router.Group("/", authMw.AuthMiddleWare())
	{
		api.GET("/bids", bidHandler.List)
		api.POST("/bids", bidHandler.Create)
		api.GET("/bids/:id", bidHandler.Show)
		api.PATCH("/bids/:id", bidHandler.Update)
		api.DELETE("/bids/:id", bidHandler.Delete)
		api.GET("/bids/:id/documents", bidHandler.ListDocuments)
		api.POST("/bids/:id/documents", bidHandler.UploadDocument)
		api.GET("/bids/:id/jobs", jobHandler.ListJobs)

		api.POST("/rfp/upload", rfpHandler.Upload)
		api.GET("/events", eventHandler.Stream)

		api.GET("/user/profile", userHandler.GetProfile)
		api.PUT("/user/profile", userHandler.UpdateProfile)
		api.GET("/user/notifications", userHandler.GetNotifications)
		api.PUT("/user/notifications", userHandler.UpdateNotifications)
		api.POST("/auth/logout", userHandler.Logout)

		api.POST("/stripe/checkout", paymentHandler.Checkout)
	}

	// Server configuration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info("Server listening", "port", cfg.ServerPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	queue.Stop()
	if err := pool.Shutdown(ctx); err != nil {
		log.Warn("worker pool did not drain", "error", err)
	}
	stopBus()
	if err := shutdownTracing(ctx); err != nil {
		log.Warn("tracer shutdown error", "error", err)
	}
	log.Info("Server shutdown complete")
}

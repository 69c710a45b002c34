package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pos-payment-service/config"
	"pos-payment-service/controllers"
	"pos-payment-service/database"
	"pos-payment-service/kafka"
	"pos-payment-service/logger"
	"pos-payment-service/middleware"
	aws_pkg "pos-payment-service/pkg/aws"
	"pos-payment-service/providers"
	"pos-payment-service/repository"
	"pos-payment-service/routes"
	"pos-payment-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "pos-payment-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// AWS is optional locally; without it SNS, SQS and CloudWatch stay off.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwWriter *aws_pkg.CloudWatchLogsWriter
	if cfg.CloudWatchEnabled && awsErr == nil {
		cwWriter, err = aws_pkg.NewCloudWatchLogsWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch Logs disabled: %v", err)
			cwWriter = nil
		}
	}
	var zl *zap.Logger
	if cwWriter != nil {
		zl, err = logger.Initialize(cfg.Env, cwWriter)
	} else {
		zl, err = logger.Initialize(cfg.Env, nil)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if awsErr != nil {
		zl.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	db, err := database.Connect(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	metrics := aws_pkg.NewDisabledMetricsClient()
	if cfg.CloudWatchEnabled && awsErr == nil {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	gateway := newGateway(cfg, zl)
	locker := newLocker(ctx, cfg, zl)
	publisher, closePublisher := newPublisher(cfg, awsCfg, awsErr, zl)
	defer closePublisher()

	eventTopic := cfg.PaymentSNSTopicARN
	if cfg.EventBus == config.EventBusKafka {
		eventTopic = cfg.KafkaTopic
	}

	sessionRepo := repository.NewGormSessionRepository(db)
	paymentService := services.NewPaymentService(
		sessionRepo,
		gateway,
		locker,
		publisher,
		metrics,
		services.Settings{
			WebhookSecret:   cfg.StripeWebhookSecret,
			EventTopic:      eventTopic,
			DefaultCurrency: cfg.DefaultCurrency,
			DefaultTaxRate:  cfg.DefaultTaxRate,
			GatewayTimeout:  cfg.GatewayTimeout,
		},
		zl,
	)
	paymentController := controllers.NewPaymentController(paymentService, zl)

	if cfg.PaymentEventsQueueURL != "" && awsErr == nil {
		consumer := services.NewIntentEventConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.PaymentEventsQueueURL, zl),
			paymentService,
			metrics,
			zl,
		)
		go consumer.Start(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zl))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(rate.Every(time.Minute/120), 60, 5*time.Minute)))
	r.Use(middleware.Timeout(cfg.GatewayTimeout + 15*time.Second))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName, "gateway": cfg.Gateway})
	})
	routes.RegisterPaymentRoutes(r, paymentController, middleware.StaffAuth(cfg.StaffJWTSecret, zl))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("Payment service started",
		zap.String("port", cfg.Port),
		zap.String("gateway", cfg.Gateway),
		zap.String("event_bus", cfg.EventBus),
	)
	<-ctx.Done()
	zl.Info("Shutting down payment service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	zl.Info("Server exited cleanly")
}

func newGateway(cfg *config.Config, zl *zap.Logger) providers.PaymentGateway {
	if cfg.Gateway == config.GatewayDemo {
		zl.Warn("Using the demo payment gateway; no real charges are made",
			zap.Duration("delay", cfg.DemoGatewayDelay),
			zap.Bool("auto_succeed", cfg.DemoAutoSucceed),
		)
		return providers.NewDemoGateway(cfg.DemoGatewayDelay, cfg.DemoAutoSucceed, zl)
	}
	if cfg.StripeAPIURL != "" {
		return providers.NewStripeGatewayWithURL(cfg.StripeSecretKey, cfg.StripeAPIURL, cfg.GatewayTimeout, zl)
	}
	return providers.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout, zl)
}

func newLocker(ctx context.Context, cfg *config.Config, zl *zap.Logger) services.SessionLocker {
	if cfg.RedisURL == "" {
		zl.Info("Session locks are in-process; run a single replica or set REDIS_URL")
		return services.NewMemoryLocker()
	}
	client, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	zl.Info("Connected to Redis for session locks")
	return services.NewRedisLocker(client, 2*cfg.GatewayTimeout+5*time.Second)
}

// newPublisher picks the event bus. The returned func releases its resources.
func newPublisher(cfg *config.Config, awsCfg sdkaws.Config, awsErr error, zl *zap.Logger) (aws_pkg.EventPublisher, func()) {
	switch cfg.EventBus {
	case config.EventBusKafka:
		producer := kafka.NewPaymentEventProducer(cfg.KafkaBrokers, zl)
		return producer, func() { _ = producer.Close() }
	case config.EventBusSNS:
		if awsErr != nil {
			zl.Warn("SNS event bus selected but AWS is unavailable; events are not published")
			return nil, func() {}
		}
		return aws_pkg.NewSNSClient(awsCfg), func() {}
	default:
		return nil, func() {}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/api"
	"reportify-backend-go/internal/cache"
	"reportify-backend-go/internal/config"
	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/events"
	"reportify-backend-go/internal/metrics"
	"reportify-backend-go/internal/middleware"
	"reportify-backend-go/internal/payments"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.", zap.String("storeDriver", appConfig.StoreDriver))

	// --- 3. Initialize Firebase Admin SDK ---
	// Auth is always needed to verify ID tokens, even with the memory store.
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig, zapLogger); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	defer db.CloseFirestore()

	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 4. Initialize Repositories ---
	var (
		userRepo    db.UserRepository
		issueRepo   db.IssueRepository
		paymentRepo db.PaymentRepository
		auditRepo   db.AuditRepository
	)
	switch appConfig.StoreDriver {
	case config.StoreDriverMemory:
		store := db.NewMemoryStore()
		userRepo, issueRepo, paymentRepo, auditRepo = store.Users(), store.Issues(), store.Payments(), store.Audit()
		zapLogger.Warn("Using the in-memory store, data is lost on restart.")
	default:
		firestoreClient := db.GetFirestoreClient()
		userRepo = db.NewFirestoreUserRepository(firestoreClient)
		issueRepo = db.NewFirestoreIssueRepository(firestoreClient)
		paymentRepo = db.NewFirestorePaymentRepository(firestoreClient)
		auditRepo = db.NewFirestoreAuditRepository(firestoreClient)
	}

	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		issueRepo = cache.NewCachedIssueRepository(issueRepo, redisCache, appConfig.IssueCacheTTL, zapLogger)
		zapLogger.Info("Issue cache enabled", zap.String("addr", appConfig.RedisAddr), zap.Duration("ttl", appConfig.IssueCacheTTL))
	}

	var publisher core.EventPublisher = core.NoopPublisher{}
	if appConfig.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:      appConfig.RabbitMQURL,
			Exchange: appConfig.RabbitMQExchange,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
		zapLogger.Info("Event publishing enabled", zap.String("exchange", appConfig.RabbitMQExchange))
	}

	// --- 5. Initialize Services ---
	guard := core.NewEntitlementGuard(appConfig.FreeIssueQuota)
	auditService := core.NewAuditService(auditRepo)
	reconciler := core.NewPaymentReconciler(paymentRepo, userRepo, issueRepo, publisher, zapLogger)
	services := api.Services{
		Authority:  core.NewRoleAuthority(userRepo),
		Users:      core.NewUserService(userRepo, guard),
		Issues:     core.NewIssueService(issueRepo, userRepo, guard, publisher, zapLogger),
		Upvotes:    core.NewUpvoteLedger(issueRepo, publisher, zapLogger),
		Reconciler: reconciler,
		Admin:      core.NewAdminService(userRepo, auditService, zapLogger),
		Payments: payments.NewStripeProvider(payments.StripeConfig{
			SecretKey:         appConfig.StripeSecretKey,
			WebhookSecret:     appConfig.StripeWebhookSecret,
			Currency:          appConfig.PaymentCurrency,
			PremiumPriceCents: appConfig.PremiumPriceCents,
			BoostPriceCents:   appConfig.BoostPriceCents,
			ClientURL:         appConfig.ClientURL,
		}, zapLogger),
	}

	sweeper := core.NewSweeper(paymentRepo, reconciler, appConfig.SweepLookback, zapLogger)
	if appConfig.SweepSchedule != "" {
		if err := sweeper.Start(appConfig.SweepSchedule); err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to start payment sweeper", zap.Error(err))
		}
	}
	zapLogger.Info("Core services initialized successfully.")

	// --- 6. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(metrics.GinMiddleware())
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	limiter := middleware.NewRateLimiter(appConfig.RateLimitRPS, appConfig.RateLimitBurst, zapLogger)
	api.SetupRoutes(router, zapLogger, firebaseAuthClient, limiter, services)

	limiterCtx, stopLimiterCleanup := context.WithCancel(context.Background())
	defer stopLimiterCleanup()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(30 * time.Minute)
			case <-limiterCtx.Done():
				return
			}
		}
	}()

	// --- 7. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 8. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}
	sweeper.Stop(shutdownCtx)

	zapLogger.Info("Server exiting gracefully.")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	customerapp "github.com/storefront/backend/internal/application/customer"
	notificationapp "github.com/storefront/backend/internal/application/notification"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/email"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/sms"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := telemetry.RegisterOtelGorm(db.DB, cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Redis backs the token blacklist
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	// Auth services
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := auth.NewRedisTokenBlacklist(redisClient)
	oidcService, err := auth.NewOIDCService(ctx, cfg.OIDC)
	if err != nil {
		log.Fatal("Failed to initialize OIDC verifier", zap.Error(err))
	}
	if oidcService.Enabled() {
		log.Info("OIDC login enabled", zap.String("issuer", cfg.OIDC.IssuerURL))
	}

	// Object storage for product images
	var objectStorage catalogapp.ObjectStorageService
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		objectStorage = s3Storage
	} else {
		log.Warn("Object storage disabled, image uploads will be rejected")
		objectStorage = storage.NewStubObjectStorage()
	}

	// Repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	imageRepo := persistence.NewGormProductImageRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	templateRepo := persistence.NewGormTemplateRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	authService := customerapp.NewAuthService(customerRepo, jwtService, tokenBlacklist, oidcService, eventBus, log)
	customerService := customerapp.NewCustomerService(customerRepo)
	categoryService := catalogapp.NewCategoryService(categoryRepo, uow, eventBus)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, uow, eventBus)
	imageService := catalogapp.NewImageService(imageRepo, productRepo, objectStorage, log)
	cartService := orderapp.NewCartService(cartRepo, productRepo)
	orderService := orderapp.NewOrderService(orderRepo, cartRepo, productRepo, uow, eventBus)
	notificationService := notificationapp.NewNotificationService(
		notificationRepo, templateRepo, customerRepo, cartRepo, cfg.Email.AdminEmail, log)

	// Domain events fan out into the notification queue
	eventHandler := notificationapp.NewEventHandler(notificationService, log)
	eventBus.Subscribe(eventHandler, eventHandler.EventTypes()...)

	// Delivery channels
	smsSender, err := sms.NewAfricasTalkingSender(&cfg.SMS, log)
	if err != nil {
		log.Fatal("Failed to initialize SMS sender", zap.Error(err))
	}
	emailSender, err := email.NewSMTPSender(&cfg.Email, log)
	if err != nil {
		log.Fatal("Failed to initialize email sender", zap.Error(err))
	}

	// Notification dispatcher drains the queue in the background
	dispatcher := notificationapp.NewDispatcher(notificationRepo, smsSender, emailSender, cfg.Notification, log)
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Stop(stopCtx); err != nil {
			log.Error("Error stopping notification dispatcher", zap.Error(err))
		}
	}()

	// Periodic jobs
	sched := scheduler.New(cfg.Scheduler, log)
	if cfg.Scheduler.Enabled {
		mustRegister := func(job scheduler.Job) {
			if err := sched.Register(job); err != nil {
				log.Fatal("Failed to register scheduler job", zap.String("job", job.Name), zap.Error(err))
			}
		}
		mustRegister(scheduler.Job{
			Name:     "abandoned-cart-reminder",
			Interval: cfg.Scheduler.AbandonedCartInterval,
			Run: func(ctx context.Context) error {
				n, err := notificationService.RemindAbandonedCarts(ctx, cfg.Scheduler.AbandonedCartAfter)
				if err != nil {
					return err
				}
				if n > 0 {
					log.Info("Abandoned cart reminders queued", zap.Int("count", n))
				}
				return nil
			},
		})
		mustRegister(scheduler.Job{
			Name:     "auto-confirm-paid-orders",
			Interval: cfg.Scheduler.AutoConfirmInterval,
			Run: func(ctx context.Context) error {
				n, err := orderService.AutoConfirmPaid(ctx, cfg.Scheduler.AutoConfirmAfter)
				if err != nil {
					return err
				}
				if n > 0 {
					log.Info("Paid orders auto-confirmed", zap.Int("count", n))
				}
				return nil
			},
		})
		mustRegister(scheduler.Job{
			Name:   "daily-sales-report",
			Daily:  true,
			Hour:   cfg.Scheduler.DailyReportHour,
			Minute: cfg.Scheduler.DailyReportMinute,
			Run: func(ctx context.Context) error {
				yesterday := time.Now().AddDate(0, 0, -1)
				summary, err := orderService.DailySummary(ctx, yesterday)
				if err != nil {
					return err
				}
				return notificationService.EnqueueAdminEmail(ctx, notification.TypeDailyReport, summary, nil)
			},
		})
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidations(); err != nil {
		log.Fatal("Failed to register request validations", zap.Error(err))
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = tokenBlacklist
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	customerHandler := handler.NewCustomerHandler(customerService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	imageHandler := handler.NewImageHandler(imageService)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	systemHandler := handler.NewSystemHandler(db.DB, redisClient, version)

	// Health probes sit outside the versioned API
	engine.GET("/health", systemHandler.Ready)
	engine.GET("/healthz", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)
	engine.GET("/live", systemHandler.Live)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Auth (register/login/refresh are in the JWT skip list; logout is not)
	authRoutes := router.NewDomainGroup("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/login/oidc", authHandler.LoginOIDC)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/logout", authHandler.Logout)

	// Public catalog reads (whole prefix is unauthenticated)
	catalogRoutes := router.NewDomainGroup("/catalog")
	catalogRoutes.GET("/categories", categoryHandler.List)
	catalogRoutes.GET("/categories/tree", categoryHandler.GetTree)
	catalogRoutes.GET("/categories/roots", categoryHandler.GetRoots)
	catalogRoutes.GET("/categories/slug/:slug", categoryHandler.GetBySlug)
	catalogRoutes.GET("/categories/:id", categoryHandler.GetByID)
	catalogRoutes.GET("/categories/:id/children", categoryHandler.GetChildren)
	catalogRoutes.GET("/categories/:id/average-price", categoryHandler.AveragePrice)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/featured", productHandler.GetFeatured)
	catalogRoutes.GET("/products/sku/:sku", productHandler.GetBySKU)
	catalogRoutes.GET("/products/:id", productHandler.GetByID)
	catalogRoutes.GET("/products/:id/images", imageHandler.List)

	// Customer profile
	meRoutes := router.NewDomainGroup("/me")
	meRoutes.GET("", customerHandler.Me)
	meRoutes.PUT("", customerHandler.UpdateMe)
	meRoutes.PUT("/password", customerHandler.ChangePassword)

	// Cart
	cartRoutes := router.NewDomainGroup("/cart")
	cartRoutes.GET("", cartHandler.Get)
	cartRoutes.DELETE("", cartHandler.Clear)
	cartRoutes.POST("/items", cartHandler.AddItem)
	cartRoutes.PUT("/items/:product_id", cartHandler.UpdateItem)
	cartRoutes.DELETE("/items/:product_id", cartHandler.RemoveItem)

	// Orders
	orderRoutes := router.NewDomainGroup("/orders")
	orderRoutes.POST("/checkout", orderHandler.Checkout)
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/:id", orderHandler.Get)
	orderRoutes.POST("/:id/cancel", orderHandler.Cancel)

	// Admin surface
	adminRoutes := router.NewDomainGroup("/admin")
	adminRoutes.Use(middleware.RequireAdmin())

	adminRoutes.POST("/catalog/categories", categoryHandler.Create)
	adminRoutes.PUT("/catalog/categories/:id", categoryHandler.Update)
	adminRoutes.DELETE("/catalog/categories/:id", categoryHandler.Delete)
	adminRoutes.POST("/catalog/categories/:id/move", categoryHandler.Move)
	adminRoutes.POST("/catalog/categories/:id/activate", categoryHandler.Activate)
	adminRoutes.POST("/catalog/categories/:id/deactivate", categoryHandler.Deactivate)

	adminRoutes.POST("/catalog/products", productHandler.Create)
	adminRoutes.GET("/catalog/products/low-stock", productHandler.GetLowStock)
	adminRoutes.PUT("/catalog/products/prices", productHandler.BulkUpdatePrices)
	adminRoutes.PUT("/catalog/products/:id", productHandler.Update)
	adminRoutes.DELETE("/catalog/products/:id", productHandler.Delete)
	adminRoutes.POST("/catalog/products/:id/stock/add", productHandler.AddStock)
	adminRoutes.POST("/catalog/products/:id/stock/remove", productHandler.RemoveStock)
	adminRoutes.PUT("/catalog/products/:id/stock", productHandler.SetStock)
	adminRoutes.POST("/catalog/products/:id/feature", productHandler.Feature)
	adminRoutes.POST("/catalog/products/:id/unfeature", productHandler.Unfeature)
	adminRoutes.POST("/catalog/products/:id/activate", productHandler.Activate)
	adminRoutes.POST("/catalog/products/:id/deactivate", productHandler.Deactivate)
	adminRoutes.POST("/catalog/products/:id/discontinue", productHandler.Discontinue)

	adminRoutes.POST("/catalog/products/:id/images", imageHandler.RequestUpload)
	adminRoutes.POST("/catalog/products/:id/images/:image_id/confirm", imageHandler.ConfirmUpload)
	adminRoutes.PUT("/catalog/products/:id/images/:image_id/primary", imageHandler.SetPrimary)
	adminRoutes.DELETE("/catalog/products/:id/images/:image_id", imageHandler.Delete)

	adminRoutes.GET("/customers", customerHandler.List)
	adminRoutes.GET("/customers/:id", customerHandler.GetByID)
	adminRoutes.POST("/customers/:id/deactivate", customerHandler.Deactivate)

	adminRoutes.GET("/orders", orderHandler.ListAll)
	adminRoutes.GET("/orders/reports/daily", orderHandler.DailySummary)
	adminRoutes.GET("/orders/:id", orderHandler.GetAdmin)
	adminRoutes.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	adminRoutes.POST("/orders/:id/paid", orderHandler.MarkPaid)
	adminRoutes.POST("/orders/:id/payment-failed", orderHandler.MarkPaymentFailed)
	adminRoutes.POST("/orders/:id/refunded", orderHandler.MarkRefunded)

	adminRoutes.GET("/notifications", notificationHandler.List)
	adminRoutes.GET("/notifications/stats", notificationHandler.Stats)
	adminRoutes.POST("/notifications/retry", notificationHandler.RetryFailed)
	adminRoutes.GET("/notifications/templates", notificationHandler.ListTemplates)
	adminRoutes.PUT("/notifications/templates/:id", notificationHandler.UpdateTemplate)

	adminRoutes.GET("/system/info", systemHandler.GetSystemInfo)

	r.Register(authRoutes).
		Register(catalogRoutes).
		Register(meRoutes).
		Register(cartRoutes).
		Register(orderRoutes).
		Register(adminRoutes)

	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// Package integration provides end-to-end tests for the storefront backend.
// Tests run against an in-memory SQLite database with the full HTTP stack
// wired the same way the server binary wires it.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	customerapp "github.com/storefront/backend/internal/application/customer"
	notificationapp "github.com/storefront/backend/internal/application/notification"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/storefront/backend/tests/testutil"
)

// testEnv holds a fully wired application instance backed by SQLite.
type testEnv struct {
	DB         *gorm.DB
	Engine     *gin.Engine
	JWTService *auth.JWTService
	Bus        *event.InMemoryEventBus
}

// memoryBlacklist is an in-process auth.TokenBlacklist for tests.
type memoryBlacklist struct {
	mu          sync.Mutex
	jtis        map[string]time.Time
	invalidated map[string]time.Time
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{
		jtis:        make(map[string]time.Time),
		invalidated: make(map[string]time.Time),
	}
}

func (b *memoryBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = time.Now().Add(ttl)
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.jtis[jti]
	return ok && time.Now().Before(expiry), nil
}

func (b *memoryBlacklist) AddCustomerTokensToBlacklist(_ context.Context, customerID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidated[customerID] = time.Now()
	return nil
}

func (b *memoryBlacklist) IsCustomerTokenInvalidated(_ context.Context, customerID string, tokenIssuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.invalidated[customerID]
	return ok && tokenIssuedAt.Before(at), nil
}

// newTestEnv builds the full application against a fresh in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	require.NoError(t, dto.RegisterValidations())

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")

	require.NoError(t, db.AutoMigrate(
		&customer.Customer{},
		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&order.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&order.StatusChange{},
		&notification.Notification{},
		&notification.Template{},
	), "Failed to migrate test database")

	seedTemplates(t, db)

	log := zap.NewNop()

	customerRepo := persistence.NewGormCustomerRepository(db)
	categoryRepo := persistence.NewGormCategoryRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	imageRepo := persistence.NewGormProductImageRepository(db)
	cartRepo := persistence.NewGormCartRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	notificationRepo := persistence.NewGormNotificationRepository(db)
	templateRepo := persistence.NewGormTemplateRepository(db)
	uow := persistence.NewGormUnitOfWork(db)

	bus := event.NewInMemoryEventBus(log)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bus.Stop(stopCtx)
	})

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-test-secret-0123456789abcdef",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	})
	blacklist := newMemoryBlacklist()

	oidcService, err := auth.NewOIDCService(context.Background(), config.OIDCConfig{})
	require.NoError(t, err)

	authService := customerapp.NewAuthService(customerRepo, jwtService, blacklist, oidcService, bus, log)
	customerService := customerapp.NewCustomerService(customerRepo)
	categoryService := catalogapp.NewCategoryService(categoryRepo, uow, bus)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, uow, bus)
	imageService := catalogapp.NewImageService(imageRepo, productRepo, storage.NewStubObjectStorage(), log)
	cartService := orderapp.NewCartService(cartRepo, productRepo)
	orderService := orderapp.NewOrderService(orderRepo, cartRepo, productRepo, uow, bus)
	notificationService := notificationapp.NewNotificationService(
		notificationRepo, templateRepo, customerRepo, cartRepo, "admin@example.com", log)

	eventHandler := notificationapp.NewEventHandler(notificationService, log)
	bus.Subscribe(eventHandler, eventHandler.EventTypes()...)

	engine := gin.New()

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	engine.Use(middleware.RequestID())
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	authHandler := handler.NewAuthHandler(authService)
	customerHandler := handler.NewCustomerHandler(customerService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	imageHandler := handler.NewImageHandler(imageService)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	systemHandler := handler.NewSystemHandler(db, nil, "test")

	engine.GET("/health", systemHandler.Ready)
	engine.GET("/live", systemHandler.Live)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	authRoutes := router.NewDomainGroup("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/login/oidc", authHandler.LoginOIDC)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/logout", authHandler.Logout)

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

	meRoutes := router.NewDomainGroup("/me")
	meRoutes.GET("", customerHandler.Me)
	meRoutes.PUT("", customerHandler.UpdateMe)
	meRoutes.PUT("/password", customerHandler.ChangePassword)

	cartRoutes := router.NewDomainGroup("/cart")
	cartRoutes.GET("", cartHandler.Get)
	cartRoutes.DELETE("", cartHandler.Clear)
	cartRoutes.POST("/items", cartHandler.AddItem)
	cartRoutes.PUT("/items/:product_id", cartHandler.UpdateItem)
	cartRoutes.DELETE("/items/:product_id", cartHandler.RemoveItem)

	orderRoutes := router.NewDomainGroup("/orders")
	orderRoutes.POST("/checkout", orderHandler.Checkout)
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/:id", orderHandler.Get)
	orderRoutes.POST("/:id/cancel", orderHandler.Cancel)

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

	r.Register(authRoutes).
		Register(catalogRoutes).
		Register(meRoutes).
		Register(cartRoutes).
		Register(orderRoutes).
		Register(adminRoutes)
	r.Setup()

	return &testEnv{
		DB:         db,
		Engine:     engine,
		JWTService: jwtService,
		Bus:        bus,
	}
}

// seedTemplates installs the message templates the notification event
// handlers render against.
func seedTemplates(t *testing.T, db *gorm.DB) {
	t.Helper()

	specs := []struct {
		typ     notification.Type
		channel notification.Channel
		subject string
		body    string
	}{
		{notification.TypeOrderCreated, notification.ChannelSMS, "",
			"Order {{.OrderNumber}} received. Total KES {{.TotalAmount}}."},
		{notification.TypeOrderCreated, notification.ChannelEmail, "New order {{.OrderNumber}}",
			"Order {{.OrderNumber}} with {{.ItemCount}} item(s), total KES {{.TotalAmount}}."},
		{notification.TypeOrderStatusChanged, notification.ChannelSMS, "",
			"Order {{.OrderNumber}} is now {{.ToStatus}}."},
		{notification.TypeOrderCancelled, notification.ChannelSMS, "",
			"Order {{.OrderNumber}} was cancelled."},
		{notification.TypeOrderCancelled, notification.ChannelEmail, "Order {{.OrderNumber}} cancelled",
			"Order {{.OrderNumber}} was cancelled.{{if .Reason}} Reason: {{.Reason}}{{end}}"},
		{notification.TypeWelcome, notification.ChannelEmail, "Welcome",
			"Hello {{.FirstName}}, your account {{.Email}} is ready."},
		{notification.TypeLowStock, notification.ChannelEmail, "Low stock: {{.SKU}}",
			"{{.Name}} ({{.SKU}}) is down to {{.Level}} unit(s), threshold {{.Threshold}}."},
	}

	for _, spec := range specs {
		tmpl, err := notification.NewTemplate(spec.typ, spec.channel, spec.subject, spec.body)
		require.NoError(t, err)
		require.NoError(t, db.Create(tmpl).Error)
	}
}

// register creates a customer through the API and returns its ID.
func (env *testEnv) register(t *testing.T, email, password string) uuid.UUID {
	t.Helper()

	w := testutil.DoJSON(t, env.Engine, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email":      email,
		"password":   password,
		"first_name": "Test",
		"last_name":  "Customer",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, "register failed: %s", w.Body.String())

	resp := testutil.AssertSuccessResponse(t, w)
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	id, err := uuid.Parse(data["id"].(string))
	require.NoError(t, err)
	return id
}

// login authenticates through the API and returns the access token.
func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	w := testutil.DoJSON(t, env.Engine, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	resp := testutil.AssertSuccessResponse(t, w)
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	token, ok := data["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

// registerAdmin creates a customer, promotes it to admin directly in the
// database and returns a fresh access token carrying the admin role.
func (env *testEnv) registerAdmin(t *testing.T, email, password string) string {
	t.Helper()

	env.register(t, email, password)
	err := env.DB.Model(&customer.Customer{}).
		Where("email = ?", email).
		Update("role", customer.RoleAdmin).Error
	require.NoError(t, err)
	return env.login(t, email, password)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taufiqfebriant/wo-management/internal/config"
	"github.com/taufiqfebriant/wo-management/internal/middleware"
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/taufiqfebriant/wo-management/internal/wom/handler"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := initDatabase(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	if err := seedAccessControl(db); err != nil {
		logger.Fatal("Failed to seed roles and permissions", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db)

	rdb := initRedis(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
		services.WorkOrder.SetEventPublisher(service.NewEventPublisher(rdb, cfg.Redis.EventsChannel, logger))
	}

	handlers := handler.NewHandlers(services, repos)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("mode", cfg.Server.Mode),
			zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Database connected",
		zap.String("host", cfg.Host),
		zap.String("dbname", cfg.DBName))

	return db, nil
}

func initRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Host == "" {
		logger.Info("Redis not configured, event publishing disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, event publishing disabled", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("Redis connected", zap.String("host", cfg.Host))
	return rdb
}

// seedAccessControl inserts the built-in roles and the permission vocabulary,
// then grants every permission to managers and the shop-floor subset to
// operators. Idempotent so it runs on every boot.
func seedAccessControl(db *gorm.DB) error {
	permissions := []string{
		"read products",
		"read product",
		"create products",
		"update products",
		"delete products",
		"read work orders",
		"read work order",
		"create work orders",
		"update work orders",
		"delete work orders",
		"update work order status",
		"create work order progress notes",
		"read work order summary report",
		"read operator performance report",
		"read users",
	}

	operatorPermissions := []string{
		"read work orders",
		"read work order",
		"update work order status",
		"create work order progress notes",
	}

	return db.Transaction(func(tx *gorm.DB) error {
		roles := map[string]string{
			entity.RoleManager:  "Manager",
			entity.RoleOperator: "Operator",
		}
		for code, name := range roles {
			if err := tx.Exec(`
				INSERT INTO roles (id, code, name, is_system, created_at, updated_at)
				VALUES (gen_random_uuid(), ?, ?, true, NOW(), NOW())
				ON CONFLICT (code) DO NOTHING`, code, name).Error; err != nil {
				return err
			}
		}

		for _, code := range permissions {
			if err := tx.Exec(`
				INSERT INTO permissions (id, code, name, created_at)
				VALUES (gen_random_uuid(), ?, ?, NOW())
				ON CONFLICT (code) DO NOTHING`, code, code).Error; err != nil {
				return err
			}
		}

		if err := tx.Exec(`
			INSERT INTO role_permissions (role_id, permission_id, created_at)
			SELECT r.id, p.id, NOW() FROM roles r CROSS JOIN permissions p
			WHERE r.code = ?
			ON CONFLICT DO NOTHING`, entity.RoleManager).Error; err != nil {
			return err
		}

		return tx.Exec(`
			INSERT INTO role_permissions (role_id, permission_id, created_at)
			SELECT r.id, p.id, NOW() FROM roles r JOIN permissions p ON p.code IN ?
			WHERE r.code = ?
			ON CONFLICT DO NOTHING`, operatorPermissions, entity.RoleOperator).Error
	})
}

func registerRoutes(router *gin.Engine, h *handler.Handlers, jwtSecret string) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))

	products := api.Group("/products")
	{
		products.GET("", middleware.RequirePermission("read products"), h.Product.List)
		products.POST("", middleware.RequirePermission("create products"), h.Product.Create)
		products.GET("/:id", middleware.RequirePermission("read product"), h.Product.Get)
		products.PUT("/:id", middleware.RequirePermission("update products"), h.Product.Update)
		products.DELETE("/:id", middleware.RequirePermission("delete products"), h.Product.Delete)
	}

	workOrders := api.Group("/work-orders")
	{
		workOrders.GET("", middleware.RequirePermission("read work orders"), h.WorkOrder.List)
		workOrders.POST("", middleware.RequirePermission("create work orders"), h.WorkOrder.Create)
		workOrders.GET("/:id", middleware.RequirePermission("read work order"), h.WorkOrder.Get)
		workOrders.PUT("/:id", middleware.RequirePermission("update work orders"), h.WorkOrder.Update)
		workOrders.DELETE("/:id", middleware.RequirePermission("delete work orders"), h.WorkOrder.Delete)
		workOrders.PATCH("/:id/status", middleware.RequirePermission("update work order status"), h.WorkOrder.UpdateStatus)
		workOrders.POST("/:id/progress", middleware.RequirePermission("create work order progress notes"), h.WorkOrder.AddProgress)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/work-order-summary", middleware.RequirePermission("read work order summary report"), h.Report.WorkOrderSummary)
		reports.GET("/work-order-summary/export", middleware.RequirePermission("read work order summary report"), h.Report.ExportWorkOrderSummary)
		reports.GET("/operator-performance", middleware.RequirePermission("read operator performance report"), h.Report.OperatorPerformance)
	}

	api.GET("/users", middleware.RequirePermission("read users"), h.User.List)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leiakito/wuliu-sub000/internal/config"
	"github.com/leiakito/wuliu-sub000/internal/logistics/archive"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/handler"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
	"github.com/leiakito/wuliu-sub000/internal/middleware"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env 仅用于本地开发，不存在不报错
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

	logger.Info("starting wuliu",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	if err := migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()

	// 归属关系存储：Redis 可用时启动即全量加载，否则降级为进程内存
	var owners ownerstore.Store
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := ownerstore.NewRedisStore(rdb, cfg.Redis.OwnerKey)
		if err := store.Load(ctx); err != nil {
			logger.Warn("failed to load tracking owners from redis, falling back to memory", zap.Error(err))
			owners = ownerstore.NewMemoryStore()
		} else {
			owners = store
		}
	} else {
		owners = ownerstore.NewMemoryStore()
	}

	var uploader *archive.Uploader
	if cfg.MinIO.Enabled {
		uploader, err = archive.New(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			logger.Warn("failed to init export archive, exports will not be archived", zap.Error(err))
			uploader = nil
		}
	}

	// 仓储与服务装配
	orderRepo := repository.NewOrderRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	submissionLogRepo := repository.NewSubmissionLogRepository(db)
	priceRepo := repository.NewHardwarePriceRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	userRepo := repository.NewUserRepository(db)

	orderSvc := service.NewOrderService(db, orderRepo, owners)
	settlementSvc := service.NewSettlementService(db, settlementRepo, orderRepo, priceRepo, owners, orderSvc, uploader, service.SettlementOptions{
		WarnDoubleBilling: cfg.App.Settlement.WarnDoubleBilling,
		ExportMaxRows:     cfg.App.Export.MaxRows,
	})
	orderSvc.BindSettlements(settlementSvc)
	submissionSvc := service.NewSubmissionService(db, submissionRepo, submissionLogRepo, orderRepo, settlementSvc, owners)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpire)
	priceSvc := service.NewHardwarePriceService(priceRepo)
	announcementSvc := service.NewAnnouncementService(announcementRepo)
	reportSvc := service.NewReportService(orderRepo, settlementRepo)

	if err := authSvc.EnsureDefaultAdmin(ctx, cfg.App.Auth.DefaultAdminPassword); err != nil {
		logger.Warn("failed to ensure default admin", zap.Error(err))
	}

	handlers := handler.NewHandlers(authSvc, orderSvc, settlementSvc, submissionSvc, priceSvc, announcementSvc, reportSvc, handler.NewOwnerHandler(owners))

	router := setupRouter(cfg, logger, handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Format == "console" {
		devCfg := zap.NewDevelopmentConfig()
		return devCfg.Build()
	}
	prodCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		prodCfg.Level = lvl
	}
	return prodCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
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
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entity.OrderRecord{},
		&entity.SettlementRecord{},
		&entity.UserSubmission{},
		&entity.SubmissionLog{},
		&entity.HardwarePrice{},
		&entity.Announcement{},
		&entity.SysUser{},
	); err != nil {
		return err
	}

	// AutoMigrate 覆盖不到的增量，幂等执行
	migrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_settlement_tracking_status ON settlement_records (tracking_number, status)`,
		`CREATE INDEX IF NOT EXISTS idx_submission_tracking_status ON user_submissions (tracking_number, status)`,
		`CREATE INDEX IF NOT EXISTS idx_order_tracking_created ON order_records (tracking_number, created_at DESC)`,
	}
	for _, m := range migrations {
		if err := db.Exec(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func setupRouter(cfg *config.Config, logger *zap.Logger, h *handler.Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.CORS(),
		gzip.Gzip(gzip.DefaultCompression),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})

	api := router.Group("/api")
	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("", middleware.JWTAuth(cfg.JWT.Secret))
	{
		authed.GET("/announcements", h.Announcement.ListAnnouncements)

		orders := authed.Group("/orders")
		{
			orders.GET("", h.Order.ListOrders)
			orders.POST("", h.Order.CreateOrder)
			orders.GET("/search", h.Order.SearchOrders)
			orders.GET("/stats/category", h.Order.CategoryStats)
			orders.POST("/import", h.Order.ImportOrders)
			orders.POST("/fetch", h.Order.FetchOrders)
			orders.GET("/:id", h.Order.GetOrder)
			orders.PUT("/:id", h.Order.UpdateOrder)
			orders.PUT("/:id/status", h.Order.UpdateOrderStatus)
			orders.PUT("/:id/amount", h.Order.UpdateOrderAmount)
			orders.DELETE("/:id", h.Order.DeleteOrder)
		}

		settlements := authed.Group("/settlements")
		{
			settlements.GET("", h.Settlement.ListSettlements)
			settlements.POST("/pending", h.Settlement.GeneratePending)
			settlements.POST("/confirm-batch", h.Settlement.ConfirmBatch)
			settlements.POST("/confirm-all", h.Settlement.ConfirmAllSettlements)
			settlements.POST("/price-by-model", h.Settlement.PriceByModel)
			settlements.GET("/export", h.Settlement.ExportSettlements)
			settlements.DELETE("", h.Settlement.DeleteSettlements)
			settlements.POST("/:id/confirm", h.Settlement.ConfirmSettlement)
			settlements.PUT("/:id/amount", h.Settlement.UpdateSettlementAmount)
		}

		submissions := authed.Group("/submissions")
		{
			submissions.POST("", h.Submission.CreateSubmission)
			submissions.POST("/batch", h.Submission.BatchCreateSubmissions)
			submissions.GET("/mine", h.Submission.ListMine)
			submissions.GET("", h.Submission.ListAll)
			submissions.GET("/logs", h.Submission.ListLogs)
		}

		authed.GET("/report/dashboard", h.Report.Dashboard)

		prices := authed.Group("/hardware-prices")
		{
			prices.GET("", h.Hardware.ListPrices)
			prices.GET("/latest", h.Hardware.GetLatestPrice)
			prices.POST("", h.Hardware.CreatePrice)
			prices.POST("/import", h.Hardware.ImportPrices)
			prices.DELETE("/:id", h.Hardware.DeletePrice)
		}

		admin := authed.Group("", middleware.RequireRole(entity.RoleAdmin))
		{
			admin.POST("/announcements", h.Announcement.CreateAnnouncement)
			admin.DELETE("/announcements/:id", h.Announcement.DeleteAnnouncement)
			admin.GET("/users", h.Auth.ListUsers)
			admin.POST("/users", h.Auth.CreateUser)
			admin.POST("/users/reset-password", h.Auth.ResetPassword)
			admin.GET("/tracking-owners", h.Owner.ListOwners)
			admin.GET("/tracking-owners/:tracking", h.Owner.GetOwner)
			admin.PUT("/tracking-owners/:tracking", h.Owner.SetOwner)
			admin.DELETE("/tracking-owners/:tracking", h.Owner.RemoveOwner)
		}
	}

	return router
}

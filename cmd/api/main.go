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
	_ "time/tzdata" // APP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"billminder/internal/config"
	"billminder/internal/database"
	_ "billminder/internal/docs" // Import swagger docs
	"billminder/internal/handlers"
	"billminder/internal/logger"
	"billminder/internal/middleware"
	"billminder/internal/notify"
	"billminder/internal/report"
	"billminder/internal/scheduler"
	"billminder/internal/services"
	"billminder/internal/storage"
	"billminder/internal/validator"
)

// @title           Billminder API
// @version         1.0
// @description     Billminder tracks household bills, sends due-date reminders by email and exports monthly reports.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	store, err := newFileStore(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize attachment storage: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	loc := appConfig.Location
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	billService := services.NewBillService(db, store, loc, appConfig.MaxUploadBytes)
	notificationService := services.NewNotificationService(db)
	generator := report.NewGenerator(store, loc, logger.Named("report"))
	reportService := services.NewReportService(billService, categoryService, generator, loc)

	// Reminders
	dispatcher := notify.NewDispatcher(newMailer(appConfig), store, notificationService, notify.NewComposer(loc), logger.Named("dispatch"))
	sweeper := notify.NewSweeper(billService, notificationService, dispatcher, loc, logger.Named("sweep"))
	sweeps := scheduler.NewSerialRunner(sweeper)

	locker, closeLocker, err := newLocker(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize sweep lock: %w", err)
	}
	defer closeLocker()

	var trigger *scheduler.CronTrigger
	if appConfig.SchedulerEnabled {
		triggerConfig := scheduler.DefaultCronTriggerConfig()
		triggerConfig.RegularHours = appConfig.RegularSweepHours
		triggerConfig.UrgentHours = appConfig.UrgentSweepHours
		triggerConfig.Location = loc
		trigger = scheduler.NewCronTrigger(triggerConfig, sweeps, locker, logger.Named("scheduler"))
		if err := trigger.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	userHandler := handlers.NewUserHandler(userService, notificationService, auditService, sweeps)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	billHandler := handlers.NewBillHandler(billService, auditService, loc, appConfig.MaxUploadBytes)
	reportHandler := handlers.NewReportHandler(reportService, auditService, loc, appConfig.ReportTimeout)
	sweepHandler := handlers.NewSweepHandler(sweeps)

	validator.Register()

	router := newRouter(appConfig, authHandler, userHandler, categoryHandler, billHandler, reportHandler, sweepHandler)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Billminder server on port %s (timezone %s)", appConfig.Port, loc)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warnf("scheduler stop: %v", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}

func newRouter(
	appConfig *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	categoryHandler *handlers.CategoryHandler,
	billHandler *handlers.BillHandler,
	reportHandler *handlers.ReportHandler,
	sweepHandler *handlers.SweepHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.MaxMultipartMemory = appConfig.MaxUploadBytes

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// External scheduler hooks
	sweepRoutes := v1.Group("/sweeps")
	sweepRoutes.Use(middleware.SweepKeyMiddleware(appConfig.SweepAPIKey))
	sweepRoutes.POST("/regular", sweepHandler.RunRegular)
	sweepRoutes.POST("/urgent", sweepHandler.RunUrgent)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	user := protected.Group("/user")
	user.PUT("/notification-settings", userHandler.UpdateNotificationSettings)
	user.GET("/notifications", userHandler.ListNotifications)
	protected.POST("/notifications/test", userHandler.TestNotifications)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	bills := protected.Group("/bills")
	bills.POST("", billHandler.CreateBill)
	bills.GET("", billHandler.ListBills)
	bills.GET("/:id", billHandler.GetBill)
	bills.PUT("/:id", billHandler.UpdateBill)
	bills.DELETE("/:id", billHandler.DeleteBill)
	bills.PATCH("/:id/status", billHandler.UpdateStatus)
	bills.PATCH("/:id/payment-info", billHandler.UpdatePaymentInfo)
	bills.POST("/:id/invoice", billHandler.UploadInvoice)
	bills.POST("/:id/proof", billHandler.UploadProof)
	bills.GET("/:id/files/:kind", billHandler.DownloadFile)

	reports := protected.Group("/reports")
	reports.GET("/monthly/:year/:month/:format", reportHandler.MonthlyReport)

	return router
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		}, storage.WithS3Logger(logger.Named("storage")))
	case "", "local":
		return storage.NewLocalStore(cfg.StoragePath)
	}
	return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (use local or s3)", cfg.StorageDriver)
}

func newMailer(cfg *config.Config) notify.Mailer {
	if !cfg.SMTPConfigured() {
		logger.Get().Warn("SMTP is not configured; reminders will be logged instead of sent")
		return notify.NewLogMailer(logger.Named("mail"))
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// newLocker returns the Redis slot lock when REDIS_ADDR is set so several
// instances share one sweep per slot, and an in-process lock otherwise.
func newLocker(ctx context.Context, cfg *config.Config) (scheduler.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return scheduler.NewLocalLocker(), func() {}, nil
	}
	locker, err := scheduler.NewRedisLocker(ctx, scheduler.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return locker, func() { closeQuietly(locker.Close, logger.Get()) }, nil
}

func closeQuietly(closeFn func() error, log *zap.SugaredLogger) {
	if err := closeFn(); err != nil {
		log.Warnf("close error: %v", err)
	}
}

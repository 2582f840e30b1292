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

	"storefront/app/echo-server/router"
	"storefront/business/cart"
	"storefront/business/orders"
	"storefront/business/product"
	userService "storefront/business/user"
	"storefront/internal/middleware"
	"storefront/internal/repository/notification"
	psqlRepo "storefront/internal/repository/postgres"
	redisRepo "storefront/internal/repository/redis"
	"storefront/internal/repository/storage"
	"storefront/internal/rest"
	"storefront/pkg/config"
	"storefront/pkg/database"
	redisdb "storefront/pkg/database/redis"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"storefront/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting Storefront API", "version", cfg.App.Version)

	metrics.Init()

	db, err := database.Init(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", err)
	}
	logger.Info("Database connected successfully", "driver", cfg.Database.Driver)

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", err)
	}
	defer redisdb.CloseRedisClient(redisClient)

	mailjetEmail := notification.NewMailjetRepository(
		notification.MailjetConfig{
			MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
			MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
			MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
			MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
			MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
		},
	)

	expoPush := notification.NewExpoRepository(
		notification.ExpoConfig{
			ExpoBaseURL:     cfg.Push.ExpoBaseUrl,
			ExpoAccessToken: cfg.Push.ExpoAccessToken,
		},
	)

	imageRepo, err := storage.NewLocalImageRepository(storage.LocalConfig{
		UploadDir: cfg.Storage.UploadDir,
		PublicURL: cfg.Storage.PublicUrl,
	})
	if err != nil {
		logger.Fatal("Failed to init image storage", err)
	}

	validate := utils.NewValidator()

	// Init repo
	transactor := psqlRepo.NewTransactor(db)
	userRepo := psqlRepo.NewUserRepository(db)
	customerRepo := psqlRepo.NewCustomerRepository(db)
	productsRepo := psqlRepo.NewProductRepository(db)
	cartRepo := psqlRepo.NewCartRepository(db)
	ordersRepo := psqlRepo.NewOrdersRepository(db)
	sessionRepo := redisRepo.NewTokenRepository(redisClient)

	// Init service
	userSvc := userService.NewUserService(
		userRepo,
		customerRepo,
		transactor,
		mailjetEmail,
		imageRepo,
		sessionRepo,
		validate,
		userService.Config{
			JWTSecret:            cfg.JWT.SecretKey,
			JWTTTL:               cfg.JWT.TTL,
			VerificationTokenTTL: cfg.App.VerificationTokenTTL,
			AppDeploymentUrl:     cfg.App.AppDeploymentUrl,
			NotificationTimeout:  cfg.Notification.Timeout,
		},
	)
	productSvc := product.NewProductService(productsRepo, imageRepo, validate)
	cartSvc := cart.NewCartService(cartRepo, productsRepo, customerRepo)
	ordersSvc := orders.NewOrdersService(
		ordersRepo,
		productsRepo,
		customerRepo,
		cartRepo,
		transactor,
		mailjetEmail,
		expoPush,
		validate,
		orders.Config{NotificationTimeout: cfg.Notification.Timeout},
	)

	// Init handler
	userHandler := rest.NewUserHandler(userSvc)
	productHandler := rest.NewProductHandler(productSvc)
	cartHandler := rest.NewCartHandler(cartSvc)
	ordersHandler := rest.NewOrdersHandler(ordersSvc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit("8M"))
	e.Use(middleware.RequestMetrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.App.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey, sessionRepo)
	adminOnly := middleware.AdminOnly()

	router.SetOpsRoutes(e, cfg.Storage.UploadDir)

	api := e.Group("/api/v1")
	router.SetupUserRoutes(api, userHandler, authRequired, adminOnly, middleware.SelfOrAdmin())
	router.SetupProductRoutes(api, productHandler, authRequired, adminOnly)
	router.SetupCartRoutes(api, cartHandler, authRequired)
	router.SetOrdersRoutes(api, ordersHandler, authRequired, adminOnly)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", err)
	}

	logger.Info("Server stopped")
}

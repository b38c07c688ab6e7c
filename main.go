package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pitstop/config"
	"pitstop/cron"
	"pitstop/database"
	assignmentRepoPkg "pitstop/database/repository/assignment"
	bookingRepoPkg "pitstop/database/repository/booking"
	extensionRepoPkg "pitstop/database/repository/extension"
	notificationRepoPkg "pitstop/database/repository/notification"
	pricematrixRepoPkg "pitstop/database/repository/pricematrix"
	privacyRepoPkg "pitstop/database/repository/privacy"
	userRepoPkg "pitstop/database/repository/user"
	vehicleRepoPkg "pitstop/database/repository/vehicle"
	"pitstop/handlers"
	"pitstop/routes"
	"pitstop/services/booking"
	"pitstop/services/dispatch"
	"pitstop/services/extension"
	"pitstop/services/notification"
	"pitstop/services/payment"
	"pitstop/services/pricing"
	"pitstop/services/privacy"
	"pitstop/services/user"
	"pitstop/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitAuthCache()
	utils.FirebaseInit()
	stripe.Key = config.AppConfig.StripeKey

	cloudinaryStorageService, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	assignmentRepo := assignmentRepoPkg.NewMongoAssignmentRepo()
	extensionRepo := extensionRepoPkg.NewMongoExtensionRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()
	vehicleRepo := vehicleRepoPkg.NewMongoVehicleRepo()
	notificationRepo := notificationRepoPkg.NewMongoNotificationRepo()
	matrixRepo := pricematrixRepoPkg.NewMongoPriceMatrixRepo()
	privacyRepo := privacyRepoPkg.NewMongoPrivacyRepo()

	// services.
	notificationSvc, err := notification.NewFCMService(userRepo, notificationRepo)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	paymentGateway := payment.NewStripeGateway(logger)
	pricingEngine := pricing.NewEngine(matrixRepo)
	dispatchSvc := dispatch.NewDefaultDispatchService(assignmentRepo, bookingRepo, notificationSvc)
	bookingSvc := booking.NewDefaultBookingService(
		bookingRepo, vehicleRepo, pricingEngine, paymentGateway, dispatchSvc, notificationSvc)
	extensionSvc := extension.NewDefaultExtensionService(
		extensionRepo, bookingRepo, paymentGateway, notificationSvc)
	privacySvc := privacy.NewDefaultPrivacyService(
		userRepo, vehicleRepo, bookingRepo, notificationRepo, privacyRepo, privacy.CacheSessionRevoker{})
	userSvc := user.NewDefaultUserService(userRepo, vehicleRepo)

	// handlers.
	handlers.BookingSvc = bookingSvc
	handlers.DispatchSvc = dispatchSvc
	handlers.ExtensionSvc = extensionSvc
	handlers.PrivacySvc = privacySvc
	handlers.UserSvc = userSvc
	storageHandler := handlers.NewStorageHandler(cloudinaryStorageService)

	routes.RegisterRoutes(router, storageHandler)

	// Background worker for outstanding extension captures.
	cron.InitCaptureWorker(extensionSvc, extensionRepo)

	utils.StartHealthMonitor(
		map[string]*redis.Client{
			"cache": utils.GetCacheClient(),
			"auth":  utils.GetAuthCacheClient(),
		},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

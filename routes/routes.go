package routes

import (
	"time"

	"pitstop/handlers"
	"pitstop/middleware"
	"pitstop/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers account endpoints.
func RegisterAuthRoutes(r *gin.Engine) {
	api := r.Group("/api/auth")
	{
		api.POST("/register", handlers.Register)
		api.POST("/login", handlers.Login)
	}

	users := r.Group("/api/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.PUT("/fcm-token", handlers.UpdateFCMToken)
	}
}

// RegisterVehicleRoutes registers customer vehicle endpoints.
func RegisterVehicleRoutes(r *gin.Engine) {
	api := r.Group("/api/vehicles")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("", handlers.RegisterVehicle)
		api.GET("", handlers.ListVehicles)
		api.PUT("/:id/mileage", handlers.UpdateMileage)
	}
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine) {
	api := r.Group("/api/bookings")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("", handlers.CreateBooking)
		api.GET("", handlers.ListBookings)
		api.GET("/:id", handlers.GetBooking)
		api.GET("/:id/extensions", handlers.ListExtensions)

		// Payment confirmation comes from the processor callback or the
		// customer app; the service validates the reference either way.
		api.POST("/:id/confirm-payment", handlers.ConfirmPayment)
		api.POST("/:id/cancel", handlers.CancelBooking)

		workshop := api.Group("")
		workshop.Use(middleware.RequireRole(models.RoleWorkshop, models.RoleSystem))
		workshop.POST("/:id/advance", handlers.AdvanceStatus)
		workshop.POST("/:id/complete", handlers.CompleteBooking)
	}
}

// RegisterExtensionRoutes registers the extension approval endpoints.
func RegisterExtensionRoutes(r *gin.Engine) {
	api := r.Group("/api/extensions")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("", middleware.RequireRole(models.RoleWorkshop), handlers.CreateExtension)
		api.POST("/:id/resolve", middleware.RequireRole(models.RoleCustomer), handlers.ResolveExtension)
		api.POST("/:id/capture", middleware.RequireRole(models.RoleWorkshop, models.RoleSystem), handlers.CaptureExtension)
	}
}

// RegisterAssignmentRoutes registers the jockey endpoints.
func RegisterAssignmentRoutes(r *gin.Engine) {
	api := r.Group("/api/assignments")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/:id", handlers.GetAssignment)
		api.POST("/:id/claim", middleware.RequireRole(models.RoleJockey), handlers.ClaimAssignment)
		api.POST("/:id/handover", middleware.RequireRole(models.RoleJockey), handlers.CompleteHandover)
	}
}

// RegisterPrivacyRoutes registers data-subject request endpoints.
func RegisterPrivacyRoutes(r *gin.Engine) {
	api := r.Group("/api/privacy")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/export", handlers.ExportData)
		api.POST("/erase", handlers.RequestErasure)
	}
}

// RegisterStorageRoutes registers the evidence media endpoints.
func RegisterStorageRoutes(r *gin.Engine, sh *handlers.StorageHandler) {
	api := r.Group("/api/evidence")
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/:kind", sh.UploadEvidence)
		api.GET("/:kind/url", sh.GetEvidenceURL)
	}
}

// RegisterHealthRoute registers the health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthCheck)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, sh *handlers.StorageHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterAuthRoutes(r)
	RegisterVehicleRoutes(r)
	RegisterBookingRoutes(r)
	RegisterExtensionRoutes(r)
	RegisterAssignmentRoutes(r)
	RegisterPrivacyRoutes(r)
	RegisterStorageRoutes(r, sh)
}

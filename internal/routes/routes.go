package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/handlers"
)

// Handlers groups the request handlers mounted by SetupRoutes.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Appointments *handlers.AppointmentHandler
	Payments     *handlers.PaymentHandler
}

// SetupRoutes configures the application routes. authMiddleware guards
// everything except registration, login and token refresh.
func SetupRoutes(router *gin.Engine, h Handlers, authMiddleware gin.HandlerFunc) {
	// Public routes (no authentication required)
	router.POST("/register/", h.Auth.Register)
	router.POST("/login/", h.Auth.Login)
	router.POST("/refresh-token/", h.Auth.RefreshToken)

	// Authenticated routes
	private := router.Group("/")
	private.Use(authMiddleware)
	{
		private.POST("/logout/", h.Auth.Logout)
		private.GET("/profile/", h.Auth.GetProfile)

		private.POST("/create-appointment/", h.Appointments.CreateAppointment)
		private.POST("/delete-appointment/:id/", h.Appointments.DeleteAppointment)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/", h.Appointments.ListAppointments)
			appointmentRoutes.GET("/summary/", h.Appointments.GetSummary)
			appointmentRoutes.GET("/:id/", h.Appointments.GetAppointmentByID)
			appointmentRoutes.POST("/:id/update/", h.Appointments.UpdateAppointmentStatus)
		}

		payRoutes := private.Group("/pay")
		{
			payRoutes.POST("/:id/", h.Payments.PayAppointment)
			payRoutes.GET("/:id/receipt/", h.Payments.GetReceipt)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}

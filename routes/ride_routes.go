package routes

import (
	"gotrike/internal/handlers"
	"gotrike/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes sets up routes for ride lifecycle operations
func SetupRideRoutes(r *gin.RouterGroup, rideHandler *handlers.RideHandler, jwtSecret string) {
	rides := r.Group("/rides")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		rides.POST("/", middleware.RiderRequired(), rideHandler.BookRide)
		rides.POST("/:id/accept", middleware.DriverRequired(), rideHandler.AcceptRide)
		rides.PUT("/:id/status", middleware.DriverRequired(), rideHandler.UpdateRideStatus)
		rides.POST("/:id/cancel", rideHandler.CancelRide)
		rides.GET("/:id", rideHandler.GetRide)
		rides.GET("/", rideHandler.ListRides)
	}
}

package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-record-service/internal/adapter/gin/handler"
	"user-record-service/internal/adapter/gin/middleware"
	grpcmiddleware "user-record-service/internal/adapter/grpc/middleware"
)

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.GET("/health", healthHandler.Health)

	users := router.Group("/users")
	users.Use(middleware.RateLimiter(rateLimiter, log))
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PATCH("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	return router
}

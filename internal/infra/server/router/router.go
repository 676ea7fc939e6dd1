// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/controller"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine            *gin.Engine
	healthController  *controller.HealthController
	bankingController *controller.BankingController
	apiRateLimiter    *middleware.RateLimiter
	authMiddleware    *middleware.AuthMiddleware
}

// NewRouter creates a new router instance with all dependencies.
func NewRouter(
	healthController *controller.HealthController,
	bankingController *controller.BankingController,
	apiRateLimiter *middleware.RateLimiter,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		healthController:  healthController,
		bankingController: bankingController,
		apiRateLimiter:    apiRateLimiter,
		authMiddleware:    authMiddleware,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	r.engine = gin.Default()

	r.engine.GET("/health", r.healthController.Check)
	r.setupAPIRoutes()

	return r.engine
}

// setupAPIRoutes configures the main API routes.
func (r *Router) setupAPIRoutes() {
	v1 := r.engine.Group("/api/v1")
	{
		// Bank catalog is public; everything stateful requires a caller token.
		v1.GET("/banks", r.bankingController.ListBanks)

		connections := v1.Group("/connections")
		connections.Use(r.authMiddleware.Authenticate())
		{
			connections.GET("", r.bankingController.ListConnections)
			connections.POST("/sync", r.bankingController.SyncAll)
			connections.POST("/:bankCode", r.apiRateLimiter.Middleware(), r.bankingController.InitiateConnection)
			connections.POST("/:bankCode/callback", r.bankingController.CompleteConnection)
			connections.POST("/:bankCode/sync", r.bankingController.SyncBank)
			connections.DELETE("/:bankCode", r.bankingController.Disconnect)
		}

		imports := v1.Group("/imports")
		imports.Use(r.authMiddleware.Authenticate())
		{
			imports.POST("/csv", r.bankingController.ImportCSV)
		}
	}
}

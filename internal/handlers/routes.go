package handlers

import (
	"github.com/gin-gonic/gin"
	"todoclient/internal/auth"
	"todoclient/internal/middleware"
)

// Router bundles what RegisterRoutes needs
type Router struct {
	Auth      *AuthHandler
	Todos     *TodoHandler
	Health    *HealthHandler
	JWT       *auth.JWTConfig
	RateLimit *middleware.RateLimitConfig
}

// RegisterRoutes mounts the todo and auth API on router
func RegisterRoutes(router *gin.Engine, r Router) {
	requireAuth := middleware.RequireAuth(r.JWT)
	authLimit := middleware.AuthRateLimiter(r.RateLimit)

	router.GET("/health", r.Health.BasicHealth)
	router.GET("/health/detailed", r.Health.DetailedHealth)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authLimit, r.Auth.Register)
		authGroup.POST("/login", authLimit, r.Auth.Login)
		authGroup.POST("/refresh", r.Auth.Refresh)
		authGroup.GET("/access-token", r.Auth.Refresh)
		authGroup.POST("/logout", r.Auth.Logout)
		authGroup.GET("/me", requireAuth, r.Auth.Me)
		authGroup.GET("/user-details", requireAuth, r.Auth.Me)
	}

	todos := router.Group("/todos", requireAuth)
	{
		todos.POST("/get-todos", r.Todos.GetTodos)
		todos.POST("", r.Todos.CreateTodo)
		todos.PATCH("/:id", middleware.UUIDParam("id"), r.Todos.UpdateTodo)
		todos.DELETE("/:id", middleware.UUIDParam("id"), r.Todos.DeleteTodo)
	}
}

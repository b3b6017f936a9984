package controllers

import (
	"Meduroam/handlers"
	"Meduroam/middlewares"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler) *AuthController {
	return &AuthController{
		Handler: authHandler,
	}
}

// RegisterRoutes initializes all authentication routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.DELETE("/auth/delete-account/:id", ac.Handler.DeleteAccount)
	router.POST("/auth/decrypt", ac.Handler.DecryptHandler)
	router.POST("/auth/change-password", ac.Handler.ChangePassword)

	// Protected routes: Requires a valid token
	authGroup := router.Group("/auth").Use(middlewares.TokenAuthMiddleware())
	{
		authGroup.GET("/user/profile", ac.Handler.GetUserProfile)
		authGroup.POST("/refresh-token", ac.Handler.RefreshToken)
	}
}

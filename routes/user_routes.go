package routes

import (
	"lipia/controllers"

	"github.com/gin-gonic/gin"
)

func SetupUserRoutes(router *gin.Engine, userController *controllers.UserController, authMiddleware gin.HandlerFunc) {
	router.GET("/api-health", userController.APIHealth)

	userGroup := router.Group("/", authMiddleware)
	{
		userGroup.GET("/dashboard", userController.Dashboard)
		userGroup.GET("/account", userController.Account)
	}
}

package routes

import (
	"lipia/controllers"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes configures the operator endpoints behind basic auth
func SetupAdminRoutes(router *gin.Engine, adminController *controllers.AdminController, adminMiddleware gin.HandlerFunc) {
	adminGroup := router.Group("/admin", adminMiddleware)
	{
		adminGroup.GET("/stats", adminController.GetStats)
		adminGroup.POST("/reset", adminController.ResetCache)
	}
}

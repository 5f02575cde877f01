package routes

import (
	"lipia/controllers"

	"github.com/gin-gonic/gin"
)

func SetupContentRoutes(router *gin.Engine, contentController *controllers.ContentController, authMiddleware gin.HandlerFunc) {
	contentGroup := router.Group("/", authMiddleware)
	{
		contentGroup.GET("/humanize", contentController.HumanizePage)
		contentGroup.POST("/humanize", contentController.Humanize)
		contentGroup.GET("/detect", contentController.DetectPage)
		contentGroup.POST("/detect", contentController.Detect)
	}
}

package routes

import (
	"net/http"

	"lipia/metrics"
	"lipia/views"

	"github.com/gin-gonic/gin"
)

func SetupStaticRoutes(router *gin.Engine) {
	router.StaticFS("/static", http.FS(views.Static()))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

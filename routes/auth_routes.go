package routes

import (
	"lipia/controllers"
	"lipia/utils"

	"github.com/gin-gonic/gin"
)

func SetupAuthRoutes(router *gin.Engine, authController *controllers.AuthController, limiter *utils.RateLimiter) {
	router.GET("/", authController.Index)
	router.GET("/login", authController.LoginPage)
	router.POST("/login", limiter.Middleware(), authController.Login)
	router.GET("/register", authController.RegisterPage)
	router.POST("/register", limiter.Middleware(), authController.Register)
	router.GET("/logout", authController.Logout)
}

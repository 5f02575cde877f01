package routes

import (
	"lipia/controllers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupSubscriptionRoutes(router *gin.Engine, subscriptionController *controllers.SubscriptionController, authMiddleware gin.HandlerFunc, corsOrigins []string) {
	subGroup := router.Group("/", authMiddleware)
	{
		subGroup.GET("/payment", subscriptionController.PaymentPage)
		subGroup.POST("/payment", subscriptionController.Payment)
		subGroup.GET("/upgrade", subscriptionController.UpgradePage)
		subGroup.POST("/upgrade", subscriptionController.Upgrade)
		subGroup.GET("/payments/:checkout_id/watch", subscriptionController.WatchPayment)
		subGroup.GET("/account/transactions/:id/qr", subscriptionController.ReceiptQR)
	}

	apiGroup := router.Group("/api", corsMiddleware(corsOrigins), authMiddleware)
	{
		apiGroup.GET("/payments/:checkout_id/status", subscriptionController.PaymentStatus)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// credentials cannot be combined with a literal "*"
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

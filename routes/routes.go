package routes

import (
	"payment-sync-service/controllers"
	"payment-sync-service/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterWebhookRoutes(r *gin.Engine, wc *controllers.WebhookController, debugToken string) {
	// Rail webhook (signature-verified, no auth middleware)
	r.POST("/server/receive_webhook", wc.ReceiveWebhook)

	debug := r.Group("/debug")
	debug.Use(middleware.DebugAuthMiddleware(debugToken))
	debug.POST("/sync", wc.TriggerSync)
}

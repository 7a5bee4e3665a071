// Package api is the broker's one inbound HTTP surface: the payment
// webhook listener. Everything else in the system (subscription lifecycle,
// checkout, admin commands) is driven by the Telegram bot's own long-poll
// connection or the Scheduler Fleet, never by an HTTP request — so this
// router is deliberately tiny next to the teacher's internal/api/router.go,
// which fronts a full multi-tenant REST API.
package api

import (
	"github.com/vpnbroker/broker/internal/api/middleware"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin.Engine fronting webhook ingress, grounded on the
// teacher's NewRouter (gin.Default + global middleware + route groups),
// narrowed to the routes this domain actually serves.
func NewRouter(webhook *WebhookHandler, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID, middleware.RequestLogger(log))

	router.GET("/health", HandleHealth)

	webhooks := router.Group("/webhooks", middleware.ErrorHandler())
	{
		webhooks.POST("/stripe", webhook.HandleStripe)
		webhooks.POST("/stars", webhook.HandleStars)
	}

	return router
}

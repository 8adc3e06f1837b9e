package main

import (
	"github.com/gin-gonic/gin"

	"voicecall-platform/internal/auth"
	"voicecall-platform/internal/webhook"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, a *app) {
	h := a.handlers

	// Browser clients preflight every route, including unmatched OPTIONS.
	r.Use(webhook.CORS())

	// public
	r.GET("/healthz", h.Healthz)

	// Provider webhooks (public, optionally HMAC-verified).
	a.webhook.Register(r.Group("/webhooks"))

	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireSession(a.sessions))
	{
		v1.POST("/auth/logout", h.Logout)

		v1.POST("/batch-call", h.BatchCall)

		v1.GET("/campaigns", h.ListCampaigns)
		v1.GET("/campaigns/:id", h.GetCampaign)

		v1.GET("/call-logs", h.ListCallLogs)

		v1.GET("/prompts", h.ListPrompts)
		v1.POST("/prompts", h.CreatePrompt)

		v1.GET("/dashboard/stats", h.DashboardStats)
	}
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/handlers"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/middleware"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
)

func SetupRoutes(router *gin.Engine, st *store.Store, svc *workflow.Service,
	limiter *middleware.RateLimiter) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.RequestIDMiddleware())
	v1.Use(middleware.IdentityMiddleware())
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		agents := v1.Group("/agents")
		{
			agents.POST("/generate", handlers.GenerateAgent(svc))
			agents.POST("", handlers.SaveAgent(svc))
			agents.GET("", handlers.ListAgents(st))
			agents.GET("/:agentId", handlers.GetAgent(st))
			agents.POST("/:agentId/run", handlers.RunAgent(svc))
			agents.POST("/:agentId/publish", handlers.PublishAgent(svc))
			agents.POST("/:agentId/interpret", handlers.InterpretCommand(svc))
			agents.POST("/:agentId/download", handlers.DownloadAgent(svc))
		}

		v1.GET("/explore", handlers.Explore(st))
		v1.GET("/logs", handlers.ListLogs(st))
		v1.GET("/dashboard", handlers.Dashboard(svc))

		feedback := v1.Group("/feedback")
		{
			feedback.POST("", handlers.SubmitFeedback(svc))
			feedback.POST("/summary", handlers.SummarizeFeedback(svc))
		}

		v1.GET("/live/ws", handlers.Live(st))
	}
}

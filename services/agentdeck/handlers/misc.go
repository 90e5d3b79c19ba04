// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/middleware"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
)

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func runCompleteMessage(succeeded, total int) string {
	return fmt.Sprintf("Agent run complete. %d of %d tasks succeeded.", succeeded, total)
}

// Explore handles GET /v1/explore: every published agent, newest first.
func Explore(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "Explore")

		agents, err := st.PublicAgents(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list public agents", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list public agents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents})
	}
}

// ListLogs handles GET /v1/logs: the acting identity's run logs,
// newest first.
func ListLogs(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "ListLogs")

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		logs, err := st.LogsByOwner(c.Request.Context(), identity.UID)
		if err != nil {
			logger.Error("Failed to list logs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}

// Dashboard handles GET /v1/dashboard: the landing page aggregate for
// the acting identity.
func Dashboard(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "Dashboard")

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		stats, err := svc.Dashboard(c.Request.Context(), identity)
		if err != nil {
			logger.Error("Failed to build dashboard", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build dashboard"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

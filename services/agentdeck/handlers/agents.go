// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentdeckhq/agentdeck/pkg/validation"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/middleware"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/observability"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
)

// GenerateAgentRequest is the body for POST /v1/agents/generate.
type GenerateAgentRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// SaveAgentRequest is the body for POST /v1/agents.
type SaveAgentRequest struct {
	AgentConfig datatypes.AgentConfig `json:"agentConfig" binding:"required"`
}

// InterpretRequest is the body for POST /v1/agents/:agentId/interpret.
type InterpretRequest struct {
	Command string `json:"command" binding:"required"`
}

// recordAction reports one finished action to the metrics singleton,
// if metrics were initialized.
func recordAction(action string, start time.Time, success bool) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordAction(action, success, time.Since(start).Seconds())
	}
}

// agentIDParam validates the :agentId path parameter before it can
// reach a store key. Responds 400 and returns false on failure.
func agentIDParam(c *gin.Context) (string, bool) {
	id := c.Param("agentId")
	if err := validation.ValidateAgentID(id); err != nil {
		c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
		return "", false
	}
	return id, true
}

// GenerateAgent handles POST /v1/agents/generate: free text in,
// reviewable agent configuration out. Nothing is persisted.
func GenerateAgent(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "GenerateAgent")
		start := time.Now()

		var req GenerateAgentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("generate", start, false)
			return
		}

		prompt, err := validation.SanitizePrompt(req.Prompt)
		if err != nil {
			logger.Warn("Rejected prompt", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("generate", start, false)
			return
		}

		config, err := svc.CreateAgentFromPrompt(c.Request.Context(), prompt)
		if err != nil {
			logger.Warn("Agent generation failed", "error", err)
			respondErr(c, err, "Failed to create agent. Please try again.")
			recordAction("generate", start, false)
			return
		}

		recordAction("generate", start, true)
		respondOK(c, "Agent configuration generated!", config)
	}
}

// SaveAgent handles POST /v1/agents: commits a reviewed configuration
// as a new agent owned by the acting identity.
func SaveAgent(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "SaveAgent")
		start := time.Now()

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		var req SaveAgentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("save", start, false)
			return
		}

		agentID, err := svc.SaveAgent(c.Request.Context(), identity, req.AgentConfig)
		if err != nil {
			logger.Error("Failed to save agent", "error", err)
			respondErr(c, err, "Failed to save agent. Please try again.")
			recordAction("save", start, false)
			return
		}

		recordAction("save", start, true)
		respondOK(c, "Agent saved successfully!", gin.H{"agentId": agentID})
	}
}

// ListAgents handles GET /v1/agents: the acting identity's agents,
// newest first.
func ListAgents(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "ListAgents")

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		agents, err := st.AgentsByOwner(c.Request.Context(), identity.UID)
		if err != nil {
			logger.Error("Failed to list agents", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list agents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents})
	}
}

// GetAgent handles GET /v1/agents/:agentId. Reads are not ownership
// gated: public agents are readable by anyone, private agents only
// read as not-found for strangers.
func GetAgent(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "GetAgent")

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		agentID, ok := agentIDParam(c)
		if !ok {
			return
		}

		agent, err := st.GetAgent(c.Request.Context(), agentID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		if err != nil {
			logger.Error("Failed to read agent", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read agent"})
			return
		}
		if agent.UID != identity.UID && !agent.IsPublic {
			// Indistinguishable from a missing document.
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agent": agent})
	}
}

// RunAgent handles POST /v1/agents/:agentId/run: simulates every task,
// appending logs and advancing counters in one atomic batch.
func RunAgent(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "RunAgent")
		start := time.Now()

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		agentID, ok := agentIDParam(c)
		if !ok {
			recordAction("run", start, false)
			return
		}

		result, err := svc.RunAgent(c.Request.Context(), identity, agentID)
		if err != nil {
			logger.Warn("Agent run rejected", "agentId", agentID, "error", err)
			respondErr(c, err, "An unexpected error occurred while running the agent.")
			recordAction("run", start, false)
			return
		}

		recordAction("run", start, true)
		respondOK(c,
			runCompleteMessage(result.TasksSucceeded, result.TasksRun),
			result)
	}
}

// PublishAgent handles POST /v1/agents/:agentId/publish.
func PublishAgent(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "PublishAgent")
		start := time.Now()

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		agentID, ok := agentIDParam(c)
		if !ok {
			recordAction("publish", start, false)
			return
		}

		if err := svc.PublishAgent(c.Request.Context(), identity, agentID); err != nil {
			logger.Warn("Publish rejected", "agentId", agentID, "error", err)
			respondErr(c, err, "Failed to publish agent. Please try again.")
			recordAction("publish", start, false)
			return
		}

		recordAction("publish", start, true)
		respondOK(c, "Agent published successfully!", nil)
	}
}

// InterpretCommand handles POST /v1/agents/:agentId/interpret: turns a
// natural language command into one appended task on an owned agent.
func InterpretCommand(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "InterpretCommand")
		start := time.Now()

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		var req InterpretRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("interpret", start, false)
			return
		}

		agentID, ok := agentIDParam(c)
		if !ok {
			recordAction("interpret", start, false)
			return
		}
		command, err := validation.SanitizePrompt(req.Command)
		if err != nil {
			logger.Warn("Rejected command", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("interpret", start, false)
			return
		}

		result, err := svc.InterpretCommand(c.Request.Context(), identity, agentID, command)
		if err != nil {
			logger.Warn("Command interpretation failed", "agentId", agentID, "error", err)
			respondErr(c, err, "Failed to interpret command. Please try again.")
			recordAction("interpret", start, false)
			return
		}

		recordAction("interpret", start, true)
		respondOK(c, "Command interpreted and new task added!", result)
	}
}

// DownloadAgent handles POST /v1/agents/:agentId/download: copies a
// public agent into the actor's collection and bumps the source's
// download counter atomically.
func DownloadAgent(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "DownloadAgent")
		start := time.Now()

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		agentID, ok := agentIDParam(c)
		if !ok {
			recordAction("download", start, false)
			return
		}

		newAgentID, err := svc.DownloadAgent(c.Request.Context(), identity, agentID)
		if err != nil {
			logger.Warn("Download rejected", "agentId", agentID, "error", err)
			respondErr(c, err, "Failed to download agent. Please try again.")
			recordAction("download", start, false)
			return
		}

		recordAction("download", start, true)
		respondOK(c, "Agent downloaded successfully!", gin.H{"newAgentId": newAgentID})
	}
}

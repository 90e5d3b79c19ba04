// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the AgentDeck API.
//
// Every mutating action returns the uniform result envelope
// {success, message, data?}. The envelope, not the HTTP status code,
// is the error-signaling contract; statuses are set to sensible values
// for proxies and metrics but clients are expected to read the body.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
	"github.com/agentdeckhq/agentdeck/services/llm"
)

// ActionResponse is the uniform result envelope.
type ActionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ActionResponse{Success: true, Message: message, Data: data})
}

// respondErr translates a workflow error into the envelope. Known
// domain errors get their own user-facing message; everything else
// collapses into the per-action fallback so internals never leak.
func respondErr(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
		message = "Invalid form data."
	case errors.Is(err, workflow.ErrPermissionDenied):
		status = http.StatusForbidden
		message = "Permission denied. You do not own this agent."
	case errors.Is(err, workflow.ErrNotPublic):
		status = http.StatusForbidden
		message = "This agent is not public."
	case errors.Is(err, workflow.ErrSelfDownload):
		status = http.StatusBadRequest
		message = "You cannot download your own agent."
	case errors.Is(err, workflow.ErrNoTasks):
		status = http.StatusBadRequest
		message = "This agent has no tasks to run."
	case errors.Is(err, llm.ErrSchemaViolation), errors.Is(err, llm.ErrUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, workflow.ErrCommitFailure):
		status = http.StatusConflict
	}

	c.JSON(status, ActionResponse{Success: false, Message: message})
}

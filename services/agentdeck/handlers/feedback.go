// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/middleware"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
)

// FeedbackRequest is the body for POST /v1/feedback.
type FeedbackRequest struct {
	Type    string `json:"type" binding:"required"`
	Comment string `json:"comment" binding:"required"`
}

// SubmitFeedback handles POST /v1/feedback.
func SubmitFeedback(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "SubmitFeedback")
		start := time.Now()

		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ActionResponse{Success: false, Message: "Invalid form data."})
			recordAction("feedback", start, false)
			return
		}

		err := svc.SubmitFeedback(c.Request.Context(), datatypes.FeedbackType(req.Type), req.Comment)
		if err != nil {
			logger.Warn("Feedback rejected", "type", req.Type, "error", err)
			respondErr(c, err, "Failed to submit feedback. Please try again.")
			recordAction("feedback", start, false)
			return
		}

		recordAction("feedback", start, true)
		respondOK(c, "Feedback submitted successfully.", nil)
	}
}

// SummarizeFeedback handles POST /v1/feedback/summary: all feedback on
// file, summarized by the model.
func SummarizeFeedback(svc *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "SummarizeFeedback")
		start := time.Now()

		summary, err := svc.SummarizeFeedback(c.Request.Context())
		if err != nil {
			logger.Warn("Feedback summarization failed", "error", err)
			respondErr(c, err, "Failed to summarize feedback. Please try again later.")
			recordAction("summarize", start, false)
			return
		}

		recordAction("summarize", start, true)
		respondOK(c, "Feedback summarized successfully.", summary)
	}
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// FeedbackType is the fixed category set for user feedback.
type FeedbackType string

const (
	FeedbackTypeReview         FeedbackType = "review"
	FeedbackTypeIssue          FeedbackType = "issue"
	FeedbackTypeBug            FeedbackType = "bug"
	FeedbackTypeFeatureRequest FeedbackType = "feature_request"
)

// Feedback is a single append-only feedback record. Feedback is only
// ever consumed in aggregate by the summarization flow.
type Feedback struct {
	ID        string       `json:"id" validate:"required"`
	Type      FeedbackType `json:"type" validate:"required,oneof=review issue bug feature_request"`
	Comment   string       `json:"comment" validate:"required"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
)

// emptyFeedbackSummary is returned when there is nothing to analyze,
// so the dashboard has something friendly to render.
const emptyFeedbackSummary = "There is no user feedback to analyze yet. Come back after some has been submitted!"

// SubmitFeedback appends one feedback record. Feedback is anonymous
// and append-only.
func (s *Service) SubmitFeedback(ctx context.Context, feedbackType datatypes.FeedbackType, comment string) error {
	fb := datatypes.Feedback{
		ID:        uuid.NewString(),
		Type:      feedbackType,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: s.now(),
	}
	if err := s.validate.Struct(&fb); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetFeedback(&fb)
	})
	if err != nil {
		s.logger.Error("Failed to save feedback", "error", err)
		return mapStoreErr(err)
	}

	s.logger.Info("Feedback submitted", "type", fb.Type)
	return nil
}

// SummarizeFeedback reads every feedback record and asks the model for
// a free-form summary. With no feedback on file it short-circuits to a
// canned message without calling the model.
func (s *Service) SummarizeFeedback(ctx context.Context) (string, error) {
	feedback, err := s.store.AllFeedback(ctx)
	if err != nil {
		return "", fmt.Errorf("load feedback: %w", err)
	}
	if len(feedback) == 0 {
		return emptyFeedbackSummary, nil
	}

	summary, err := s.gen.GenerateText(ctx, summarizeFeedbackPrompt(feedback))
	if err != nil {
		s.logger.Warn("Feedback summarization failed", "count", len(feedback), "error", err)
		return "", err
	}
	return summary, nil
}

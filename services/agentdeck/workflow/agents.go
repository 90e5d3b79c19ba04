// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
)

// successProbability is the simulated per-task success rate for run.
// A task succeeds when a uniform [0,1) draw lands below the threshold.
const successProbability = 0.8

// CreateAgentFromPrompt generates a reviewable agent configuration from
// a free-text description. Nothing is persisted; the caller surfaces
// the result for human review before SaveAgent.
func (s *Service) CreateAgentFromPrompt(ctx context.Context, prompt string) (*datatypes.AgentConfig, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrValidation)
	}

	var config datatypes.AgentConfig
	err := s.gen.GenerateStruct(ctx, agentCreationInstructions, "User Prompt: "+prompt, &config)
	if err != nil {
		s.logger.Warn("Agent generation failed", "error", err)
		return nil, err
	}

	s.logger.Info("Agent config generated", "name", config.Name, "tasks", len(config.Tasks))
	return &config, nil
}

// SaveAgent persists a reviewed configuration as a new agent owned by
// identity, with operational fields reset and a random preset avatar.
func (s *Service) SaveAgent(ctx context.Context, identity Identity, config datatypes.AgentConfig) (string, error) {
	if err := s.validate.Struct(&config); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.now()
	agent := datatypes.Agent{
		ID:                uuid.NewString(),
		UID:               identity.UID,
		Name:              config.Name,
		Description:       config.Description,
		Status:            datatypes.AgentStatusInactive,
		Tasks:             config.Tasks,
		TasksCompleted:    0,
		LastRun:           now,
		CreatedAt:         now,
		Avatar:            strconv.Itoa(int(s.randFloat()*4) + 1),
		IsPublic:          false,
		Downloads:         0,
		AuthorDisplayName: identity.DisplayName,
		AuthorPhotoURL:    identity.PhotoURL,
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetAgent(&agent)
	})
	if err != nil {
		s.logger.Error("Failed to save agent", "error", err)
		return "", mapStoreErr(err)
	}

	s.logger.Info("Agent saved", "agentId", agent.ID, "uid", identity.UID, "name", agent.Name)
	return agent.ID, nil
}

// InterpretCommand turns a natural language command into one new task
// on an owned agent. The generation runs outside the transaction (no
// point paying for a model call the guard would reject, and no writes
// may depend on the model), then the append re-checks ownership inside
// the committing transaction.
func (s *Service) InterpretCommand(ctx context.Context, identity Identity, agentID, command string) (*CommandInterpretation, error) {
	if strings.TrimSpace(command) == "" || agentID == "" {
		return nil, fmt.Errorf("%w: agent id and command are required", ErrValidation)
	}

	// Cheap pre-check before the model call.
	err := s.store.View(ctx, func(tx *store.Tx) error {
		_, err := guardOwner(tx, agentID, identity.UID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var result CommandInterpretation
	err = s.gen.GenerateStruct(ctx, interpretCommandInstructions,
		"Natural Language Command: "+command, &result)
	if err != nil {
		s.logger.Warn("Command interpretation failed", "agentId", agentID, "error", err)
		return nil, err
	}

	err = s.store.Update(ctx, func(tx *store.Tx) error {
		agent, err := guardOwner(tx, agentID, identity.UID)
		if err != nil {
			return err
		}
		agent.Tasks = append(agent.Tasks, datatypes.Task{
			Name:    result.ActionableSteps,
			Details: result.ValidationResult,
		})
		return tx.SetAgent(agent)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.logger.Info("Command interpreted and task appended", "agentId", agentID)
	return &result, nil
}

// PublishAgent flips an owned agent to public. Publishing an already
// public agent is a no-op success; nothing in this workflow ever flips
// an agent back to private.
func (s *Service) PublishAgent(ctx context.Context, identity Identity, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("%w: agent id is required", ErrValidation)
	}

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		agent, err := guardOwner(tx, agentID, identity.UID)
		if err != nil {
			return err
		}
		if agent.IsPublic {
			return nil
		}
		agent.IsPublic = true
		return tx.SetAgent(agent)
	})
	if err != nil {
		return mapStoreErr(err)
	}

	s.logger.Info("Agent published", "agentId", agentID, "uid", identity.UID)
	return nil
}

// RunResult reports one simulated run.
type RunResult struct {
	TasksRun       int `json:"tasksRun"`
	TasksSucceeded int `json:"tasksSucceeded"`
}

// RunAgent simulates executing every task of an owned agent. One atomic
// batch writes a log per task and advances the agent's counters; either
// all of it becomes visible or none of it does.
func (s *Service) RunAgent(ctx context.Context, identity Identity, agentID string) (*RunResult, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrValidation)
	}

	var result RunResult
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		agent, err := guardOwner(tx, agentID, identity.UID)
		if err != nil {
			return err
		}
		if len(agent.Tasks) == 0 {
			return ErrNoTasks
		}

		now := s.now()
		succeeded := 0
		for _, task := range agent.Tasks {
			success := s.randFloat() < successProbability
			entry := datatypes.Log{
				ID:        uuid.NewString(),
				UID:       identity.UID,
				AgentID:   agent.ID,
				AgentName: agent.Name,
				TaskName:  task.Name,
				Status:    datatypes.LogStatusFailure,
				Details:   "Failed to execute task. Please check configuration.",
				Timestamp: now,
			}
			if success {
				succeeded++
				entry.Status = datatypes.LogStatusSuccess
				entry.Details = "Task completed successfully."
			}
			if err := tx.SetLog(&entry); err != nil {
				return err
			}
		}

		agent.TasksCompleted += succeeded
		agent.LastRun = now
		if err := tx.SetAgent(agent); err != nil {
			return err
		}

		result = RunResult{TasksRun: len(agent.Tasks), TasksSucceeded: succeeded}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.logger.Info("Agent run complete",
		"agentId", agentID,
		"tasksRun", result.TasksRun,
		"tasksSucceeded", result.TasksSucceeded)
	return &result, nil
}

// DownloadAgent copies a public agent into the actor's collection and
// increments the source's download counter, atomically. The actor must
// not be the source's owner; a missing source reads as "not public".
func (s *Service) DownloadAgent(ctx context.Context, identity Identity, agentID string) (string, error) {
	if agentID == "" {
		return "", fmt.Errorf("%w: agent id is required", ErrValidation)
	}

	newID := uuid.NewString()
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		source, err := tx.GetAgent(agentID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotPublic
		}
		if err != nil {
			return err
		}
		if !source.IsPublic {
			return ErrNotPublic
		}
		if source.UID == identity.UID {
			return ErrSelfDownload
		}

		now := s.now()
		clone := datatypes.Agent{
			ID:                newID,
			UID:               identity.UID,
			Name:              source.Name,
			Description:       source.Description,
			Status:            datatypes.AgentStatusInactive,
			Tasks:             source.Tasks,
			TasksCompleted:    0,
			LastRun:           now,
			CreatedAt:         now,
			Avatar:            source.Avatar,
			IsPublic:          false,
			Downloads:         0,
			AuthorDisplayName: source.AuthorDisplayName,
			AuthorPhotoURL:    source.AuthorPhotoURL,
			OriginalAgentID:   source.ID,
		}
		if err := tx.SetAgent(&clone); err != nil {
			return err
		}

		source.Downloads++
		return tx.SetAgent(source)
	})
	if err != nil {
		return "", mapStoreErr(err)
	}

	s.logger.Info("Agent downloaded", "sourceAgentId", agentID, "newAgentId", newID, "uid", identity.UID)
	return newID, nil
}

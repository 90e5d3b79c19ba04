// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the persisted record shapes for AgentDeck.
//
// Every document stored in the document store has a type here with JSON
// and validate tags. Shape is checked at the store boundary on decode
// rather than trusting stored bytes (see store.decodeInto).
package datatypes

import (
	"time"
)

// AgentStatus is the lifecycle state shown on the dashboard.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusError    AgentStatus = "error"
)

// Task is a named unit of work embedded in an Agent. Tasks have no
// independent lifecycle: they are created by generation or appended by
// command interpretation, never deleted in this workflow.
type Task struct {
	Name    string `json:"name" validate:"required"`
	Details string `json:"details" validate:"required"`
}

// Agent is a user-owned automation agent record.
//
// Invariants:
//   - UID is immutable after creation.
//   - TasksCompleted is monotonically non-decreasing and only advances
//     through the run operation.
//   - IsPublic never transitions back to false once set (there is no
//     unpublish operation).
type Agent struct {
	ID          string      `json:"id" validate:"required"`
	UID         string      `json:"uid" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Status      AgentStatus `json:"status" validate:"required,oneof=active inactive error"`

	Tasks          []Task    `json:"tasks" validate:"dive"`
	TasksCompleted int       `json:"tasksCompleted" validate:"min=0"`
	LastRun        time.Time `json:"lastRun"`
	CreatedAt      time.Time `json:"createdAt"`

	// Avatar is a preset identifier ("1".."4") picked when the agent is
	// saved. Purely cosmetic.
	Avatar string `json:"avatar"`

	IsPublic  bool `json:"isPublic"`
	Downloads int  `json:"downloads" validate:"min=0"`

	// Attribution of the original author; carried along on download so
	// copies still credit whoever wrote the agent.
	AuthorDisplayName *string `json:"authorDisplayName,omitempty"`
	AuthorPhotoURL    *string `json:"authorPhotoURL,omitempty"`

	// OriginalAgentID back-references the public agent this record was
	// downloaded from. Empty for originals.
	OriginalAgentID string `json:"originalAgentId,omitempty"`
}

// AgentConfig is the reviewable output of prompt-driven generation:
// everything the user confirms before an Agent document exists.
type AgentConfig struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Tasks       []Task `json:"tasks" validate:"required,min=3,max=5,dive"`
}

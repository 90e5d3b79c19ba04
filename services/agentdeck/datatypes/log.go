// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// LogStatus is the simulated outcome of a single task execution.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailure LogStatus = "failure"
)

// Log records one task execution attempt. Logs are append-only and
// immutable; exactly one is written per task per run, inside the same
// atomic batch that advances the agent's counters.
//
// AgentName is denormalized from the agent at write time so the logs
// view never needs a join.
type Log struct {
	ID        string    `json:"id" validate:"required"`
	UID       string    `json:"uid" validate:"required"`
	AgentID   string    `json:"agentId" validate:"required"`
	AgentName string    `json:"agentName" validate:"required"`
	TaskName  string    `json:"taskName" validate:"required"`
	Status    LogStatus `json:"status" validate:"required,oneof=success failure"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

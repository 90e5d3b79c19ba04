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

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// recentAgentLimit caps the dashboard's recent-agents strip.
const recentAgentLimit = 3

// DashboardStats is the landing page aggregate for one user.
type DashboardStats struct {
	AgentCount          int               `json:"agentCount"`
	TotalTasksCompleted int               `json:"totalTasksCompleted"`
	RecentAgents        []datatypes.Agent `json:"recentAgents"`
}

// Dashboard aggregates a user's agents into the landing page stats.
func (s *Service) Dashboard(ctx context.Context, identity Identity) (*DashboardStats, error) {
	agents, err := s.store.AgentsByOwner(ctx, identity.UID)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}

	stats := DashboardStats{AgentCount: len(agents)}
	for _, agent := range agents {
		stats.TotalTasksCompleted += agent.TasksCompleted
	}

	// AgentsByOwner already sorts newest first.
	if len(agents) > recentAgentLimit {
		agents = agents[:recentAgentLimit]
	}
	stats.RecentAgents = agents

	return &stats, nil
}

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
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/llm"
)

// =============================================================================
// Test fixtures
// =============================================================================

// fakeLLM replays scripted responses and records the prompts it saw.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeLLM: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// scriptedRand pops draws from a queue; once exhausted it returns 0
// (always below the success threshold).
type scriptedRand struct {
	mu    sync.Mutex
	draws []float64
}

func (r *scriptedRand) next() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.draws) == 0 {
		return 0
	}
	d := r.draws[0]
	r.draws = r.draws[1:]
	return d
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, fake *fakeLLM, draws ...float64) (*Service, *store.Store) {
	t.Helper()

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	rnd := &scriptedRand{draws: draws}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, fake, logger,
		WithClock(func() time.Time { return testTime }),
		WithRandom(rnd.next))
	return svc, st
}

func strPtr(s string) *string { return &s }

func testIdentity(uid string) Identity {
	return Identity{
		UID:         uid,
		DisplayName: strPtr("Demo User"),
		PhotoURL:    strPtr("https://i.pravatar.cc/150?u=demo-user"),
	}
}

func validConfig() datatypes.AgentConfig {
	return datatypes.AgentConfig{
		Name:        "Plant Waterer",
		Description: "Keeps the office plants alive.",
		Tasks: []datatypes.Task{
			{Name: "Check soil moisture", Details: "Read the sensor every morning"},
			{Name: "Water dry plants", Details: "Dispense 100ml when below threshold"},
			{Name: "Log watering events", Details: "Record each watering with a timestamp"},
		},
	}
}

// mustSave persists a config and returns the new agent ID.
func mustSave(t *testing.T, svc *Service, identity Identity) string {
	t.Helper()
	id, err := svc.SaveAgent(context.Background(), identity, validConfig())
	require.NoError(t, err)
	return id
}

// =============================================================================
// Generation
// =============================================================================

func TestCreateAgentFromPrompt(t *testing.T) {
	const goodJSON = `{"name":"Plant Waterer","description":"Keeps plants alive.","tasks":[` +
		`{"name":"t1","details":"d1"},{"name":"t2","details":"d2"},{"name":"t3","details":"d3"}]}`

	tests := []struct {
		name     string
		response string
		llmErr   error
		wantErr  error
		wantName string
	}{
		{
			name:     "clean json",
			response: goodJSON,
			wantName: "Plant Waterer",
		},
		{
			name:     "json in markdown fence",
			response: "```json\n" + goodJSON + "\n```",
			wantName: "Plant Waterer",
		},
		{
			name:     "json with surrounding prose",
			response: "Here is your agent:\n" + goodJSON + "\nEnjoy!",
			wantName: "Plant Waterer",
		},
		{
			name: "too few tasks",
			response: `{"name":"X","description":"Y","tasks":[` +
				`{"name":"t1","details":"d1"},{"name":"t2","details":"d2"}]}`,
			wantErr: llm.ErrSchemaViolation,
		},
		{
			name:     "not json at all",
			response: "I cannot help with that.",
			wantErr:  llm.ErrSchemaViolation,
		},
		{
			name:    "backend down",
			llmErr:  errors.New("connection refused"),
			wantErr: llm.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{responses: []string{tt.response}, err: tt.llmErr}
			svc, _ := newTestService(t, fake)

			config, err := svc.CreateAgentFromPrompt(context.Background(), "water my plants")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, config.Name)
			assert.Len(t, config.Tasks, 3)
		})
	}
}

func TestCreateAgentFromPromptRejectsEmptyPrompt(t *testing.T) {
	fake := &fakeLLM{}
	svc, _ := newTestService(t, fake)

	_, err := svc.CreateAgentFromPrompt(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, fake.calls, "empty prompt must not reach the model")
}

// =============================================================================
// Save
// =============================================================================

func TestSaveAgent(t *testing.T) {
	svc, st := newTestService(t, &fakeLLM{}, 0.6) // avatar draw -> "3"
	identity := testIdentity("user-a")

	id, err := svc.SaveAgent(context.Background(), identity, validConfig())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "user-a", agent.UID)
	assert.Equal(t, "Plant Waterer", agent.Name)
	assert.Equal(t, datatypes.AgentStatusInactive, agent.Status)
	assert.Equal(t, 0, agent.TasksCompleted)
	assert.Equal(t, 0, agent.Downloads)
	assert.False(t, agent.IsPublic)
	assert.Equal(t, "3", agent.Avatar)
	assert.Equal(t, testTime, agent.CreatedAt)
	assert.Equal(t, "Demo User", *agent.AuthorDisplayName)
	assert.Empty(t, agent.OriginalAgentID)
}

func TestSaveAgentValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeLLM{})
	identity := testIdentity("user-a")

	tests := []struct {
		name   string
		mutate func(*datatypes.AgentConfig)
	}{
		{"missing name", func(c *datatypes.AgentConfig) { c.Name = "" }},
		{"missing description", func(c *datatypes.AgentConfig) { c.Description = "" }},
		{"no tasks", func(c *datatypes.AgentConfig) { c.Tasks = nil }},
		{"too many tasks", func(c *datatypes.AgentConfig) {
			for i := 0; i < 4; i++ {
				c.Tasks = append(c.Tasks, datatypes.Task{Name: "t", Details: "d"})
			}
		}},
		{"task missing details", func(c *datatypes.AgentConfig) { c.Tasks[0].Details = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			_, err := svc.SaveAgent(context.Background(), identity, config)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

// =============================================================================
// Publish
// =============================================================================

func TestPublishAgent(t *testing.T) {
	svc, st := newTestService(t, &fakeLLM{})
	owner := testIdentity("user-a")
	stranger := testIdentity("user-b")
	id := mustSave(t, svc, owner)

	t.Run("stranger is denied", func(t *testing.T) {
		err := svc.PublishAgent(context.Background(), stranger, id)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		agent, err := st.GetAgent(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, agent.IsPublic, "denied publish must not mutate the record")
	})

	t.Run("missing agent reads as denied", func(t *testing.T) {
		err := svc.PublishAgent(context.Background(), owner, "no-such-agent")
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("owner publishes", func(t *testing.T) {
		require.NoError(t, svc.PublishAgent(context.Background(), owner, id))

		agent, err := st.GetAgent(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, agent.IsPublic)
	})

	t.Run("publish is idempotent", func(t *testing.T) {
		require.NoError(t, svc.PublishAgent(context.Background(), owner, id))

		agent, err := st.GetAgent(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, agent.IsPublic)
	})
}

// =============================================================================
// Run
// =============================================================================

func TestRunAgent(t *testing.T) {
	// Avatar draw, then one draw per task: success, failure, success.
	svc, st := newTestService(t, &fakeLLM{}, 0.1, 0.5, 0.95, 0.2)
	owner := testIdentity("user-a")
	id := mustSave(t, svc, owner)

	result, err := svc.RunAgent(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TasksRun)
	assert.Equal(t, 2, result.TasksSucceeded)

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, agent.TasksCompleted)
	assert.Equal(t, testTime, agent.LastRun)

	logs, err := st.LogsByOwner(context.Background(), owner.UID)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	succeeded, failed := 0, 0
	for _, entry := range logs {
		assert.Equal(t, id, entry.AgentID)
		assert.Equal(t, "Plant Waterer", entry.AgentName)
		assert.Equal(t, owner.UID, entry.UID)
		switch entry.Status {
		case datatypes.LogStatusSuccess:
			succeeded++
			assert.Equal(t, "Task completed successfully.", entry.Details)
		case datatypes.LogStatusFailure:
			failed++
			assert.Equal(t, "Failed to execute task. Please check configuration.", entry.Details)
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)
}

func TestRunAgentAccumulatesAcrossRuns(t *testing.T) {
	// Avatar, then 3 successes, then 3 successes.
	svc, st := newTestService(t, &fakeLLM{}, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
	owner := testIdentity("user-a")
	id := mustSave(t, svc, owner)

	for i := 0; i < 2; i++ {
		_, err := svc.RunAgent(context.Background(), owner, id)
		require.NoError(t, err)
	}

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 6, agent.TasksCompleted)
}

func TestRunAgentDeniedLeavesNoTrace(t *testing.T) {
	svc, st := newTestService(t, &fakeLLM{})
	owner := testIdentity("user-a")
	stranger := testIdentity("user-b")
	id := mustSave(t, svc, owner)

	_, err := svc.RunAgent(context.Background(), stranger, id)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The denied run must not have written any logs for anyone.
	for _, uid := range []string{owner.UID, stranger.UID} {
		logs, err := st.LogsByOwner(context.Background(), uid)
		require.NoError(t, err)
		assert.Empty(t, logs)
	}

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, agent.TasksCompleted)
}

func TestRunAgentWithoutTasks(t *testing.T) {
	svc, st := newTestService(t, &fakeLLM{})
	owner := testIdentity("user-a")
	id := mustSave(t, svc, owner)

	// Strip the tasks directly in the store.
	err := svc.store.Update(context.Background(), func(tx *store.Tx) error {
		agent, err := tx.GetAgent(id)
		if err != nil {
			return err
		}
		agent.Tasks = nil
		return tx.SetAgent(agent)
	})
	require.NoError(t, err)

	_, err = svc.RunAgent(context.Background(), owner, id)
	assert.ErrorIs(t, err, ErrNoTasks)

	logs, err := st.LogsByOwner(context.Background(), owner.UID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// =============================================================================
// Interpret
// =============================================================================

func TestInterpretCommand(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`{"actionableSteps":"Send a daily digest at 9am","validationResult":"Command is valid and scheduled."}`,
	}}
	svc, st := newTestService(t, fake)
	owner := testIdentity("user-a")
	id := mustSave(t, svc, owner)

	result, err := svc.InterpretCommand(context.Background(), owner, id, "email me a digest every morning")
	require.NoError(t, err)
	assert.Equal(t, "Send a daily digest at 9am", result.ActionableSteps)

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, agent.Tasks, 4)
	last := agent.Tasks[len(agent.Tasks)-1]
	assert.Equal(t, "Send a daily digest at 9am", last.Name)
	assert.Equal(t, "Command is valid and scheduled.", last.Details)
}

func TestInterpretCommandDeniedBeforeModelCall(t *testing.T) {
	fake := &fakeLLM{}
	svc, _ := newTestService(t, fake)
	owner := testIdentity("user-a")
	stranger := testIdentity("user-b")
	id := mustSave(t, svc, owner)

	_, err := svc.InterpretCommand(context.Background(), stranger, id, "do something")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, fake.calls, "ownership must be checked before paying for generation")
}

func TestInterpretCommandSchemaViolationLeavesAgentUntouched(t *testing.T) {
	fake := &fakeLLM{responses: []string{`{"wrong":"shape"}`}}
	svc, st := newTestService(t, fake)
	owner := testIdentity("user-a")
	id := mustSave(t, svc, owner)

	_, err := svc.InterpretCommand(context.Background(), owner, id, "do something")
	assert.ErrorIs(t, err, llm.ErrSchemaViolation)

	agent, err := st.GetAgent(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, agent.Tasks, 3)
}

// =============================================================================
// Download
// =============================================================================

func TestDownloadAgent(t *testing.T) {
	svc, st := newTestService(t, &fakeLLM{})
	author := testIdentity("author")
	downloader := testIdentity("downloader")

	sourceID := mustSave(t, svc, author)

	t.Run("private agent cannot be downloaded", func(t *testing.T) {
		_, err := svc.DownloadAgent(context.Background(), downloader, sourceID)
		assert.ErrorIs(t, err, ErrNotPublic)
	})

	require.NoError(t, svc.PublishAgent(context.Background(), author, sourceID))

	// Give the source some history; the copy must not inherit it.
	_, err := svc.RunAgent(context.Background(), author, sourceID)
	require.NoError(t, err)

	t.Run("self download rejected", func(t *testing.T) {
		_, err := svc.DownloadAgent(context.Background(), author, sourceID)
		assert.ErrorIs(t, err, ErrSelfDownload)
	})

	t.Run("missing agent reads as not public", func(t *testing.T) {
		_, err := svc.DownloadAgent(context.Background(), downloader, "no-such-agent")
		assert.ErrorIs(t, err, ErrNotPublic)
	})

	t.Run("download clones and counts", func(t *testing.T) {
		newID, err := svc.DownloadAgent(context.Background(), downloader, sourceID)
		require.NoError(t, err)
		require.NotEqual(t, sourceID, newID)

		clone, err := st.GetAgent(context.Background(), newID)
		require.NoError(t, err)
		assert.Equal(t, downloader.UID, clone.UID)
		assert.Equal(t, sourceID, clone.OriginalAgentID)
		assert.False(t, clone.IsPublic)
		assert.Equal(t, 0, clone.TasksCompleted)
		assert.Equal(t, 0, clone.Downloads)
		assert.Equal(t, datatypes.AgentStatusInactive, clone.Status)
		// Attribution follows the original author, not the downloader.
		assert.Equal(t, "Demo User", *clone.AuthorDisplayName)

		source, err := st.GetAgent(context.Background(), sourceID)
		require.NoError(t, err)
		assert.Equal(t, 1, source.Downloads)
		assert.True(t, source.IsPublic)
	})
}

// =============================================================================
// Feedback
// =============================================================================

func TestFeedback(t *testing.T) {
	t.Run("empty feedback gets canned summary without model call", func(t *testing.T) {
		fake := &fakeLLM{}
		svc, _ := newTestService(t, fake)

		summary, err := svc.SummarizeFeedback(context.Background())
		require.NoError(t, err)
		assert.Equal(t, emptyFeedbackSummary, summary)
		assert.Zero(t, fake.calls)
	})

	t.Run("submit then summarize", func(t *testing.T) {
		fake := &fakeLLM{responses: []string{"Users mostly want dark mode."}}
		svc, _ := newTestService(t, fake)

		require.NoError(t, svc.SubmitFeedback(context.Background(),
			datatypes.FeedbackTypeFeatureRequest, "please add dark mode"))
		require.NoError(t, svc.SubmitFeedback(context.Background(),
			datatypes.FeedbackTypeBug, "the run button is broken"))

		summary, err := svc.SummarizeFeedback(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Users mostly want dark mode.", summary)
		require.Equal(t, 1, fake.calls)
		assert.Contains(t, fake.prompts[0], "please add dark mode")
		assert.Contains(t, fake.prompts[0], "the run button is broken")
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeLLM{})
		err := svc.SubmitFeedback(context.Background(), "rant", "everything is terrible")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

// =============================================================================
// Dashboard
// =============================================================================

func TestDashboard(t *testing.T) {
	// Avatar draws for 4 saves, then 3 all-success run draws.
	svc, _ := newTestService(t, &fakeLLM{}, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
	owner := testIdentity("user-a")
	other := testIdentity("user-b")

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, mustSave(t, svc, owner))
	}
	mustSave(t, svc, other)

	_, err := svc.RunAgent(context.Background(), owner, ids[0])
	require.NoError(t, err)

	stats, err := svc.Dashboard(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.AgentCount)
	assert.Equal(t, 3, stats.TotalTasksCompleted)
	assert.Len(t, stats.RecentAgents, 3)
	for _, agent := range stats.RecentAgents {
		assert.Equal(t, owner.UID, agent.UID)
	}
}

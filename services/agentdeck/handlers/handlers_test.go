// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/routes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
	"github.com/agentdeckhq/agentdeck/services/llm"
)

// =============================================================================
// Test server
// =============================================================================

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func newTestRouter(t *testing.T, fake *fakeLLM) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := workflow.NewService(st, fake, logger)

	router := gin.New()
	routes.SetupRoutes(router, st, svc, nil)
	return router
}

// do sends a request as the given uid and decodes the envelope when the
// body has one.
func do(t *testing.T, router *gin.Engine, method, path, uid string, body any) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-AgentDeck-UID", uid)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		return w, nil
	}
	return w, &env
}

const generatedAgentJSON = `{"name":"Inbox Zero","description":"Keeps the inbox empty.","tasks":[` +
	`{"name":"Scan inbox","details":"Check for unread mail"},` +
	`{"name":"Sort mail","details":"Label by project"},` +
	`{"name":"Archive","details":"Archive anything handled"}]}`

// saveAgent creates an agent for uid and returns its id.
func saveAgent(t *testing.T, router *gin.Engine, uid string) string {
	t.Helper()

	var config map[string]any
	require.NoError(t, json.Unmarshal([]byte(generatedAgentJSON), &config))

	w, env := do(t, router, http.MethodPost, "/v1/agents", uid,
		map[string]any{"agentConfig": config})
	require.Equal(t, http.StatusOK, w.Code, "save failed: %s", w.Body.String())
	require.True(t, env.Success)

	var data struct {
		AgentID string `json:"agentId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AgentID)
	return data.AgentID
}

// =============================================================================
// Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	w, _ := do(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateAgent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newTestRouter(t, &fakeLLM{responses: []string{generatedAgentJSON}})

		w, env := do(t, router, http.MethodPost, "/v1/agents/generate", "",
			map[string]string{"prompt": "keep my inbox empty"})
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, env.Success)
		assert.Equal(t, "Agent configuration generated!", env.Message)

		var config struct {
			Name  string `json:"name"`
			Tasks []any  `json:"tasks"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &config))
		assert.Equal(t, "Inbox Zero", config.Name)
		assert.Len(t, config.Tasks, 3)
	})

	t.Run("missing prompt", func(t *testing.T) {
		router := newTestRouter(t, &fakeLLM{})
		w, env := do(t, router, http.MethodPost, "/v1/agents/generate", "",
			map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid form data.", env.Message)
	})

	t.Run("model down", func(t *testing.T) {
		router := newTestRouter(t, &fakeLLM{err: errors.New("connection refused")})
		w, env := do(t, router, http.MethodPost, "/v1/agents/generate", "",
			map[string]string{"prompt": "anything"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Failed to create agent. Please try again.", env.Message)
	})
}

func TestSaveAndListAgents(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	id := saveAgent(t, router, "user-a")

	t.Run("owner sees it", func(t *testing.T) {
		w, _ := do(t, router, http.MethodGet, "/v1/agents", "user-a", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("stranger list is empty", func(t *testing.T) {
		w, _ := do(t, router, http.MethodGet, "/v1/agents", "user-b", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), id)
	})

	t.Run("private agent 404s for strangers", func(t *testing.T) {
		w, _ := do(t, router, http.MethodGet, "/v1/agents/"+id, "user-b", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("owner reads it", func(t *testing.T) {
		w, _ := do(t, router, http.MethodGet, "/v1/agents/"+id, "user-a", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRunAgentEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	id := saveAgent(t, router, "user-a")

	t.Run("stranger denied with exact message", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/run", "user-b", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		require.NotNil(t, env)
		assert.False(t, env.Success)
		assert.Equal(t, "Permission denied. You do not own this agent.", env.Message)
	})

	t.Run("owner runs and gets logs", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/run", "user-a", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
		assert.Regexp(t, `^Agent run complete\. \d of 3 tasks succeeded\.$`, env.Message)

		lw, _ := do(t, router, http.MethodGet, "/v1/logs", "user-a", nil)
		require.Equal(t, http.StatusOK, lw.Code)
		var logsResp struct {
			Logs []struct {
				AgentID string `json:"agentId"`
			} `json:"logs"`
		}
		require.NoError(t, json.Unmarshal(lw.Body.Bytes(), &logsResp))
		assert.Len(t, logsResp.Logs, 3)
	})

	t.Run("invalid agent id rejected", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/NOTVALID/run", "user-a", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env)
		assert.Equal(t, "Invalid form data.", env.Message)
	})
}

func TestPublishExploreDownload(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	id := saveAgent(t, router, "author")

	t.Run("download before publish refused", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/download", "reader", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "This agent is not public.", env.Message)
	})

	t.Run("publish", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/publish", "author", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Agent published successfully!", env.Message)
	})

	t.Run("explore shows it to everyone", func(t *testing.T) {
		w, _ := do(t, router, http.MethodGet, "/v1/explore", "reader", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("self download refused", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/download", "author", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "You cannot download your own agent.", env.Message)
	})

	t.Run("stranger downloads a copy", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/download", "reader", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, env.Success)

		var data struct {
			NewAgentID string `json:"newAgentId"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.NotEmpty(t, data.NewAgentID)

		lw, _ := do(t, router, http.MethodGet, "/v1/agents", "reader", nil)
		assert.Contains(t, lw.Body.String(), data.NewAgentID)
	})
}

func TestInterpretEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{responses: []string{
		`{"actionableSteps":"Ping the on-call channel","validationResult":"Command accepted."}`,
	}})
	id := saveAgent(t, router, "user-a")

	w, env := do(t, router, http.MethodPost, "/v1/agents/"+id+"/interpret", "user-a",
		map[string]string{"command": "notify on-call when a task fails"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Command interpreted and new task added!", env.Message)

	gw, _ := do(t, router, http.MethodGet, "/v1/agents/"+id, "user-a", nil)
	assert.Contains(t, gw.Body.String(), "Ping the on-call channel")
}

func TestFeedbackEndpoints(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{responses: []string{"Mostly positive reviews."}})

	t.Run("invalid type refused", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/feedback", "",
			map[string]string{"type": "rant", "comment": "bah"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
	})

	t.Run("submit and summarize", func(t *testing.T) {
		w, env := do(t, router, http.MethodPost, "/v1/feedback", "",
			map[string]string{"type": "review", "comment": "love it"})
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, env.Success)

		sw, senv := do(t, router, http.MethodPost, "/v1/feedback/summary", "", nil)
		require.Equal(t, http.StatusOK, sw.Code)
		require.True(t, senv.Success)
		var summary string
		require.NoError(t, json.Unmarshal(senv.Data, &summary))
		assert.Equal(t, "Mostly positive reviews.", summary)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	saveAgent(t, router, "user-a")

	w, _ := do(t, router, http.MethodGet, "/v1/dashboard", "user-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		AgentCount          int `json:"agentCount"`
		TotalTasksCompleted int `json:"totalTasksCompleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.AgentCount)
	assert.Equal(t, 0, stats.TotalTasksCompleted)
}

func TestDefaultIdentityIsDemoUser(t *testing.T) {
	router := newTestRouter(t, &fakeLLM{})
	id := saveAgent(t, router, "") // no header -> demo identity

	// The demo user owns the agent; an explicit demo UID header reads
	// the same collection.
	w, _ := do(t, router, http.MethodGet, "/v1/agents", "demo-user-id", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
}

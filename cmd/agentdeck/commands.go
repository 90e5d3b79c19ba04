// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	outputJSON bool // Print the raw action envelope as JSON

	saveFromFile string // Read the agent config from a file instead of stdin
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var (
	rootCmd = &cobra.Command{
		Use:   "agentdeck",
		Short: "A CLI for the AgentDeck automation agent platform",
		Long: `AgentDeck turns natural-language descriptions into runnable
automation agents. This CLI talks to a running AgentDeck server.

Set AGENTDECK_URL to point at the server (default http://localhost:12300)
and AGENTDECK_UID to act as a specific user.`,
	}

	generateCmd = &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a draft agent from a natural-language description",
		Long: `Sends a description to the server, which uses the configured LLM
to propose a structured agent: a name, a description, and 3-5 tasks.
The draft is NOT saved; review it and pipe it to 'agentdeck save'.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runGenerateCommand,
	}

	saveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save a reviewed agent config as a new agent",
		Long: `Reads an agent config (JSON) from --file or stdin and persists it
as a new agent owned by the current identity.`,
		Run: runSaveCommand,
	}

	agentsCmd = &cobra.Command{
		Use:   "agents",
		Short: "Manage your agents",
	}
	listAgentsCmd = &cobra.Command{
		Use:   "list",
		Short: "List the agents you own, newest first",
		Run:   runListAgentsCommand,
	}
	getAgentCmd = &cobra.Command{
		Use:   "get [agent-id]",
		Short: "Show a single agent",
		Args:  cobra.ExactArgs(1),
		Run:   runGetAgentCommand,
	}
	runAgentCmd = &cobra.Command{
		Use:   "run [agent-id]",
		Short: "Run an agent's tasks and record a log per task",
		Args:  cobra.ExactArgs(1),
		Run:   runRunAgentCommand,
	}
	publishAgentCmd = &cobra.Command{
		Use:   "publish [agent-id]",
		Short: "Publish an agent to the public gallery (irreversible)",
		Args:  cobra.ExactArgs(1),
		Run:   runPublishAgentCommand,
	}
	interpretCmd = &cobra.Command{
		Use:   "interpret [agent-id] [command]",
		Short: "Apply a natural-language command to an agent as a new task",
		Args:  cobra.MinimumNArgs(2),
		Run:   runInterpretCommand,
	}
	downloadCmd = &cobra.Command{
		Use:   "download [agent-id]",
		Short: "Copy a public agent into your own collection",
		Args:  cobra.ExactArgs(1),
		Run:   runDownloadCommand,
	}

	exploreCmd = &cobra.Command{
		Use:   "explore",
		Short: "Browse the public agent gallery",
		Run:   runExploreCommand,
	}
	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Show your agent run logs, newest first",
		Run:   runLogsCommand,
	}
	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Show your dashboard stats",
		Run:   runDashboardCommand,
	}

	feedbackCmd = &cobra.Command{
		Use:   "feedback",
		Short: "Submit or summarize platform feedback",
	}
	submitFeedbackCmd = &cobra.Command{
		Use:   "submit [type] [comment]",
		Short: "Submit feedback (type: review, issue, bug, feature_request)",
		Args:  cobra.MinimumNArgs(2),
		Run:   runSubmitFeedbackCommand,
	}
	feedbackSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Generate an AI summary of all submitted feedback",
		Run:   runFeedbackSummaryCommand,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check whether the AgentDeck server is up",
		Run:   runHealthCommand,
	}
)

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"Output the raw server response as JSON")

	saveCmd.Flags().StringVarP(&saveFromFile, "file", "f", "",
		"Read the agent config from this file instead of stdin")

	agentsCmd.AddCommand(listAgentsCmd, getAgentCmd, runAgentCmd,
		publishAgentCmd, interpretCmd, downloadCmd)
	feedbackCmd.AddCommand(submitFeedbackCmd, feedbackSummaryCmd)

	rootCmd.AddCommand(generateCmd, saveCmd, agentsCmd, exploreCmd,
		logsCmd, dashboardCmd, feedbackCmd, healthCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 120*time.Second)
}

func finish(env *actionEnvelope, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := printEnvelope(env, outputJSON); err != nil {
		os.Exit(1)
	}
}

func runGenerateCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	prompt := strings.Join(args, " ")
	env, err := callServer(ctx, http.MethodPost, "/v1/agents/generate",
		map[string]string{"prompt": prompt})
	finish(env, err)
}

func runSaveCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	var raw []byte
	var err error
	if saveFromFile != "" {
		raw, err = os.ReadFile(saveFromFile)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading agent config: %v\n", err)
		os.Exit(1)
	}

	// Accept either a bare config or a previous 'generate' envelope.
	var cfg datatypes.AgentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil || cfg.Name == "" {
		var env actionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
			fmt.Fprintln(os.Stderr, "Error: input is not a valid agent config")
			os.Exit(1)
		}
		if err := json.Unmarshal(env.Data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: input is not a valid agent config: %v\n", err)
			os.Exit(1)
		}
	}

	env, err := callServer(ctx, http.MethodPost, "/v1/agents",
		map[string]any{"agentConfig": cfg})
	finish(env, err)
}

func runListAgentsCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodGet, "/v1/agents", nil)
	finish(env, err)
}

func runGetAgentCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodGet, "/v1/agents/"+args[0], nil)
	finish(env, err)
}

func runRunAgentCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodPost, "/v1/agents/"+args[0]+"/run", nil)
	finish(env, err)
}

func runPublishAgentCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodPost, "/v1/agents/"+args[0]+"/publish", nil)
	finish(env, err)
}

func runInterpretCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	command := strings.Join(args[1:], " ")
	env, err := callServer(ctx, http.MethodPost, "/v1/agents/"+args[0]+"/interpret",
		map[string]string{"command": command})
	finish(env, err)
}

func runDownloadCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodPost, "/v1/agents/"+args[0]+"/download", nil)
	finish(env, err)
}

func runExploreCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodGet, "/v1/explore", nil)
	finish(env, err)
}

func runLogsCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodGet, "/v1/logs", nil)
	finish(env, err)
}

func runDashboardCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodGet, "/v1/dashboard", nil)
	finish(env, err)
}

func runSubmitFeedbackCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	comment := strings.Join(args[1:], " ")
	env, err := callServer(ctx, http.MethodPost, "/v1/feedback",
		map[string]string{"type": args[0], "comment": comment})
	finish(env, err)
}

func runFeedbackSummaryCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()
	env, err := callServer(ctx, http.MethodPost, "/v1/feedback/summary", nil)
	finish(env, err)
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		serverURL()+"/health", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AgentDeck server is unreachable at %s: %v\n",
			serverURL(), err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		fmt.Println("AgentDeck server is healthy.")
	} else {
		fmt.Fprintf(os.Stderr, "AgentDeck server returned status %d\n", resp.StatusCode)
		os.Exit(1)
	}
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// actionEnvelope mirrors the server's uniform response shape. Data is
// kept raw so each command can decode its own payload.
type actionEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var httpClient = &http.Client{Timeout: 90 * time.Second}

// callServer sends a request to the AgentDeck server and decodes the
// action envelope. A non-nil error means the call never produced an
// envelope; a returned envelope with Success=false is a domain refusal.
func callServer(ctx context.Context, method, path string, body any) (*actionEnvelope, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverURL()+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid := cliUID(); uid != "" {
		req.Header.Set("X-AgentDeck-UID", uid)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach the AgentDeck server at %s: %w",
			serverURL(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read server response: %w", err)
	}

	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unexpected server response (status %d): %s",
			resp.StatusCode, string(raw))
	}
	return &env, nil
}

// printEnvelope shows the server message, then pretty-prints the data
// payload when one is present.
func printEnvelope(env *actionEnvelope, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if !env.Success {
			return fmt.Errorf("%s", env.Message)
		}
		return nil
	}

	fmt.Println(env.Message)
	if len(env.Data) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, env.Data, "", "  "); err == nil {
			fmt.Println(pretty.String())
		}
	}
	if !env.Success {
		return fmt.Errorf("%s", env.Message)
	}
	return nil
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrUnavailable means the generative capability could not be
	// reached or produced no output at all.
	ErrUnavailable = errors.New("generation unavailable")

	// ErrSchemaViolation means the model produced output that cannot be
	// parsed into the requested schema, or parsed but failed its
	// declared constraints. The output is discarded; nothing is coerced.
	ErrSchemaViolation = errors.New("generation output violates schema")
)

// StructuredClient turns free text into schema-conformant structured
// values. The model is instructed to emit a single JSON object for the
// target schema; the instructions are advisory, so the response is
// re-validated programmatically: strict decode (unknown fields
// rejected) plus validate tags on the target struct. A response that
// fails both a plain decode and a repair-then-decode pass is rejected
// with ErrSchemaViolation.
//
// From the caller's perspective this is a pure transform, modulo model
// nondeterminism: no writes, no retry.
//
// # Thread Safety
//
// Safe for concurrent use.
type StructuredClient struct {
	client   LLMClient
	validate *validator.Validate
}

func NewStructuredClient(client LLMClient) *StructuredClient {
	return &StructuredClient{
		client:   client,
		validate: validator.New(),
	}
}

// GenerateStruct invokes the model with instructions plus the user
// prompt and decodes the response into out, which must be a pointer to
// a struct with json and validate tags describing the target schema.
//
// # Outputs
//
//   - error: ErrUnavailable on transport failure, ErrSchemaViolation on
//     non-conformant output, nil on success (out is populated).
func (s *StructuredClient) GenerateStruct(ctx context.Context, instructions, prompt string, out interface{}) error {
	fullPrompt := instructions +
		"\n\nRespond with a single JSON object and nothing else. " +
		"Do not wrap the object in prose.\n\n" + prompt

	raw, err := s.client.Generate(ctx, fullPrompt, GenerationParams{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload := extractJSONObject(raw)
	if payload == "" {
		slog.Warn("Model response contained no JSON object", "length", len(raw))
		return fmt.Errorf("%w: no JSON object in response", ErrSchemaViolation)
	}

	if err := strictUnmarshal(payload, out); err != nil {
		// Models sometimes emit almost-JSON (trailing commas, single
		// quotes). Repair once, then decode strictly again.
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			slog.Warn("JSON repair failed", "error", repairErr)
			return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
		if err := strictUnmarshal(repaired, out); err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
	}

	if err := s.validate.Struct(out); err != nil {
		slog.Warn("Model output failed schema validation", "error", err)
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// GenerateText invokes the model for free-form output (no schema).
func (s *StructuredClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	raw, err := s.client.Generate(ctx, prompt, GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

func strictUnmarshal(payload string, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// extractJSONObject pulls the outermost JSON object out of a model
// response, tolerating markdown code fences and surrounding prose.
func extractJSONObject(raw string) string {
	text := strings.TrimSpace(raw)

	// Strip a ```json ... ``` fence if present.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

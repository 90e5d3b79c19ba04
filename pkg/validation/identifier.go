// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// document store keys or LLM prompts. Using these validators prevents key
// injection (a "/" in an agent ID would cross collection prefixes) and
// keeps prompt sizes bounded.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// agentIDPattern matches the IDs the server mints (UUID v4) plus the
// short lowercase slugs used in tests and fixtures. Anything outside
// this set is rejected before it can reach a store key.
var agentIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// MaxPromptLength bounds user prompts and interpreted commands before
// they are sent to the model.
const MaxPromptLength = 4000

// ValidateAgentID validates an agent identifier from a URL path.
//
// Valid IDs:
//   - 1-64 characters
//   - Lowercase letters a-z and digits 0-9
//   - Hyphens (-) after the first character
//
// Returns an error if the ID is invalid.
func ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent id cannot be empty")
	}
	if !agentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid agent id format: %q (must be 1-64 lowercase alphanumeric chars or hyphens)", id)
	}
	return nil
}

// ValidatePrompt checks a user-supplied prompt or command.
// Returns an error when the prompt is empty, not valid UTF-8, or longer
// than MaxPromptLength characters.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if !utf8.ValidString(prompt) {
		return fmt.Errorf("prompt is not valid UTF-8")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return fmt.Errorf("prompt exceeds %d characters", MaxPromptLength)
	}
	return nil
}

// SanitizePrompt normalizes and validates a prompt.
// Returns the trimmed prompt if valid, or an error if invalid.
func SanitizePrompt(prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if err := ValidatePrompt(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

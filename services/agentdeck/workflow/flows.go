// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"fmt"
	"strings"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// CommandInterpretation is the structured output of the command
// interpretation flow. ActionableSteps becomes the appended task's
// name, ValidationResult its details.
type CommandInterpretation struct {
	ActionableSteps  string `json:"actionableSteps" validate:"required"`
	ValidationResult string `json:"validationResult" validate:"required"`
}

// Prompt templates for the three generation flows. The JSON shape named
// in each template is advisory for the model; conformance is enforced
// programmatically by the structured client.

const agentCreationInstructions = `You are an AI agent creation assistant. Your task is to generate a name, description, and a list of initial actions for an AI agent based on a user's prompt.

The name should be a short, descriptive title for the agent.
The description should be a concise, one-sentence summary of what the agent does.
The tasks should be a list of 3-5 initial actions the agent will perform to accomplish its goal.

The JSON object must have this shape:
{"name": string, "description": string, "tasks": [{"name": string, "details": string}]}`

const interpretCommandInstructions = `You are an AI automation agent that interprets natural language commands and converts them into actionable steps.

Your task is to take the user's natural language input, validate it, and provide actionable steps that can be executed by the system. If the command cannot be converted, return an error message in validationResult.

The JSON object must have this shape:
{"actionableSteps": string, "validationResult": string}`

const summarizeFeedbackInstructions = `You are an AI assistant responsible for analyzing user feedback. You will be given a list of feedback items, each with a type (review, issue, bug, feature_request) and a comment.

Your task is to provide a concise summary of the feedback. The summary should be well-structured and include:
1. A general overview of user sentiment.
2. A breakdown of feedback by category (e.g., how many bugs, how many feature requests).
3. Key themes or recurring issues identified in the comments.
4. Actionable insights or suggestions for improvement based on the feedback.

Present the summary clearly.`

func summarizeFeedbackPrompt(feedback []datatypes.Feedback) string {
	var b strings.Builder
	b.WriteString(summarizeFeedbackInstructions)
	b.WriteString("\n\nHere is the feedback to analyze:\n")
	for _, fb := range feedback {
		fmt.Fprintf(&b, "- Type: %s, Comment: %s\n", fb.Type, fb.Comment)
	}
	return b.String()
}

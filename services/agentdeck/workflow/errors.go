// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import "errors"

// Error taxonomy for the workflow. Handlers translate these into the
// uniform result envelope; nothing else crosses the action boundary.
var (
	// ErrValidation means caller-supplied input failed shape checks.
	ErrValidation = errors.New("invalid input")

	// ErrPermissionDenied means the acting identity does not own the
	// record. A missing record is reported identically so callers
	// cannot probe for document existence.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotPublic means a download targeted an agent that does not
	// exist or is not published. Indistinguishable on purpose.
	ErrNotPublic = errors.New("agent is not public")

	// ErrSelfDownload means an owner tried to download their own agent.
	ErrSelfDownload = errors.New("cannot download own agent")

	// ErrNoTasks means a run was requested for an agent whose task
	// list is empty.
	ErrNoTasks = errors.New("agent has no tasks to run")

	// ErrCommitFailure means the atomic batch failed to apply. No
	// partial state change is observable.
	ErrCommitFailure = errors.New("commit failed")
)

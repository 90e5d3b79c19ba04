// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workflow implements the generation + review + persist core:
// prompt-driven agent creation, ownership-gated mutation, and the
// atomic multi-document batches behind run and download.
//
// Every operation here is one request-scoped call: read a snapshot,
// decide, commit one batch. Ownership checks run inside the same
// read-write transaction as the mutation they gate, so the
// read-then-decide-then-write race of the classic design collapses
// into a conflict-checked commit (see DESIGN.md).
package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
	"github.com/agentdeckhq/agentdeck/services/llm"
)

// Identity is the acting user. Authentication is out of scope; the
// middleware injects a stub identity on every request.
type Identity struct {
	UID         string
	DisplayName *string
	PhotoURL    *string
}

// Service orchestrates the agent workflows against the document store
// and the generative capability. All dependencies are injected; there
// is no package-level state.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent operations on the same record
// are serialized only by the store's transaction conflict detection.
type Service struct {
	store    *store.Store
	gen      *llm.StructuredClient
	validate *validator.Validate
	logger   *slog.Logger

	// now and randFloat are injectable for deterministic tests.
	// randFloat must return a uniform draw in [0, 1).
	now       func() time.Time
	randFloat func() float64
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the uniform random source used by run
// simulation and avatar assignment.
func WithRandom(randFloat func() float64) Option {
	return func(s *Service) { s.randFloat = randFloat }
}

// NewService wires a workflow service.
//
// # Inputs
//
//   - st - Document store handle. Must not be nil.
//   - client - LLM backend. Must not be nil.
//   - logger - Structured logger. Must not be nil.
func NewService(st *store.Store, client llm.LLMClient, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		gen:       llm.NewStructuredClient(client),
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// guardOwner fetches an agent inside tx and verifies ownership.
// A missing agent and a foreign agent are both ErrPermissionDenied.
func guardOwner(tx *store.Tx, agentID, uid string) (*datatypes.Agent, error) {
	agent, err := tx.GetAgent(agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPermissionDenied
	}
	if err != nil {
		return nil, fmt.Errorf("fetch agent for ownership check: %w", err)
	}
	if agent.UID != uid {
		return nil, ErrPermissionDenied
	}
	return agent, nil
}

// mapStoreErr folds store-level commit failures into the workflow
// taxonomy while passing domain errors through untouched.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrCommitFailure, err)
	}
	return err
}

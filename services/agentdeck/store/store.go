// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// Collection names. Keys are "<collection>/<id>".
const (
	CollectionAgents   = "agents"
	CollectionLogs     = "logs"
	CollectionFeedback = "feedback"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a read-write transaction lost a
	// commit race. The whole batch was discarded; nothing was applied.
	ErrConflict = errors.New("transaction conflict")
)

// Store is the document store handle shared by the workflow and the
// live watchers. It is constructed once in main and passed explicitly
// into every component that needs it.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB provides the locking.
type Store struct {
	db       *badger.DB
	gc       *gcRunner
	validate *validator.Validate
	logger   *slog.Logger
}

// Open opens the document store described by cfg.
// Callers must Close the returned store.
func Open(cfg Config) (*Store, error) {
	db, err := openBadger(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:       db,
		validate: validator.New(),
		logger:   cfg.Logger,
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.start()
	}
	return s, nil
}

// OpenInMemory opens a throwaway in-memory store for tests.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops background GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Key returns the storage key for a document.
func Key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func idFromKey(collection string, key []byte) string {
	return strings.TrimPrefix(string(key), collection+"/")
}

// decodeInto unmarshals stored bytes into v and validates its shape.
// Stored data is not trusted: a document that no longer matches the
// declared shape is surfaced as an error, never a zero-filled struct.
func (s *Store) decodeInto(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("stored document failed shape validation: %w", err)
	}
	return nil
}

// =============================================================================
// Transactions
// =============================================================================

// Tx exposes typed document operations scoped to one transaction.
// All writes performed through a Tx commit together or not at all.
type Tx struct {
	store *Store
	txn   *badger.Txn
}

// Update runs fn inside a single read-write transaction. If fn returns
// an error, or the commit loses a conflict race, no write is applied.
// Conflicts are reported as ErrConflict.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	err := withTxn(ctx, s.db, func(txn *badger.Txn) error {
		return fn(&Tx{store: s, txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		return fn(&Tx{store: s, txn: txn})
	})
}

func (t *Tx) get(collection, id string, v interface{}) error {
	item, err := t.txn.Get(Key(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return item.Value(func(val []byte) error {
		return t.store.decodeInto(val, v)
	})
}

func (t *Tx) set(collection, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := t.txn.Set(Key(collection, id), data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// GetAgent reads one agent document. Returns ErrNotFound if absent.
func (t *Tx) GetAgent(id string) (*datatypes.Agent, error) {
	var agent datatypes.Agent
	if err := t.get(CollectionAgents, id, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// SetAgent writes one agent document.
func (t *Tx) SetAgent(agent *datatypes.Agent) error {
	return t.set(CollectionAgents, agent.ID, agent)
}

// SetLog appends one log document.
func (t *Tx) SetLog(entry *datatypes.Log) error {
	return t.set(CollectionLogs, entry.ID, entry)
}

// SetFeedback appends one feedback document.
func (t *Tx) SetFeedback(fb *datatypes.Feedback) error {
	return t.set(CollectionFeedback, fb.ID, fb)
}

// =============================================================================
// Convenience reads
// =============================================================================

// GetAgent reads one agent outside any caller transaction.
func (s *Store) GetAgent(ctx context.Context, id string) (*datatypes.Agent, error) {
	var agent *datatypes.Agent
	err := s.View(ctx, func(tx *Tx) error {
		a, err := tx.GetAgent(id)
		if err != nil {
			return err
		}
		agent = a
		return nil
	})
	return agent, err
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// scan iterates every document under a collection prefix, decoding
// each into a fresh value produced by newV and handing it to visit.
func (t *Tx) scan(collection string, newV func() interface{}, visit func(v interface{}) error) error {
	prefix := []byte(collection + "/")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		v := newV()
		err := it.Item().Value(func(val []byte) error {
			return t.store.decodeInto(val, v)
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		if err := visit(v); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) agentsWhere(keep func(*datatypes.Agent) bool) ([]datatypes.Agent, error) {
	agents := []datatypes.Agent{}
	err := t.scan(CollectionAgents,
		func() interface{} { return &datatypes.Agent{} },
		func(v interface{}) error {
			a := v.(*datatypes.Agent)
			if keep(a) {
				agents = append(agents, *a)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	// Newest first, stable across runs.
	sort.Slice(agents, func(i, j int) bool {
		if !agents[i].CreatedAt.Equal(agents[j].CreatedAt) {
			return agents[i].CreatedAt.After(agents[j].CreatedAt)
		}
		return agents[i].ID < agents[j].ID
	})
	return agents, nil
}

// AgentsByOwner returns all agents owned by uid, newest first.
func (s *Store) AgentsByOwner(ctx context.Context, uid string) ([]datatypes.Agent, error) {
	var agents []datatypes.Agent
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		agents, err = tx.agentsWhere(func(a *datatypes.Agent) bool { return a.UID == uid })
		return err
	})
	return agents, err
}

// PublicAgents returns all published agents, newest first.
func (s *Store) PublicAgents(ctx context.Context) ([]datatypes.Agent, error) {
	var agents []datatypes.Agent
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		agents, err = tx.agentsWhere(func(a *datatypes.Agent) bool { return a.IsPublic })
		return err
	})
	return agents, err
}

// LogsByOwner returns all logs for uid, newest first.
func (s *Store) LogsByOwner(ctx context.Context, uid string) ([]datatypes.Log, error) {
	logs := []datatypes.Log{}
	err := s.View(ctx, func(tx *Tx) error {
		return tx.scan(CollectionLogs,
			func() interface{} { return &datatypes.Log{} },
			func(v interface{}) error {
				l := v.(*datatypes.Log)
				if l.UID == uid {
					logs = append(logs, *l)
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Timestamp.Equal(logs[j].Timestamp) {
			return logs[i].Timestamp.After(logs[j].Timestamp)
		}
		return logs[i].ID < logs[j].ID
	})
	return logs, nil
}

// AllFeedback returns every feedback record, oldest first.
func (s *Store) AllFeedback(ctx context.Context) ([]datatypes.Feedback, error) {
	feedback := []datatypes.Feedback{}
	err := s.View(ctx, func(tx *Tx) error {
		return tx.scan(CollectionFeedback,
			func() interface{} { return &datatypes.Feedback{} },
			func(v interface{}) error {
				feedback = append(feedback, *v.(*datatypes.Feedback))
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(feedback, func(i, j int) bool {
		if !feedback[i].CreatedAt.Equal(feedback[j].CreatedAt) {
			return feedback[i].CreatedAt.Before(feedback[j].CreatedAt)
		}
		return feedback[i].ID < feedback[j].ID
	})
	return feedback, nil
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/datatypes"
)

// watchMarkPrefix namespaces the per-watch registration marks. '!'
// sorts outside every collection prefix, so marks never surface in
// collection queries.
const watchMarkPrefix = "!watch/"

// A watch delivers an unbounded sequence of full-state snapshots of a
// query: the first element is the initial read, every later element is
// a re-read triggered by a committed change under the watched
// collection prefix. Cancelling the context stops delivery and closes
// the channel; the channel also closes if the underlying subscription
// dies, so a closed channel always means "no further snapshots", never
// a silently stale watch.
//
// Changes arriving while a delivery is in flight coalesce into a
// single re-read, so consumers always converge on the latest state
// even if they read slowly.
func watchQuery[T any](ctx context.Context, s *Store, collection string,
	load func(context.Context) (T, error)) <-chan T {

	out := make(chan T, 1)
	dirty := make(chan struct{}, 1)
	ready := make(chan struct{}) // closed once the subscription echoes the mark
	dead := make(chan struct{})  // closed when the subscription fails

	mark := []byte(watchMarkPrefix + uuid.NewString())

	// Subscription side: mark dirty on every committed change under
	// the prefix. Badger invokes the callback after commit, never
	// mid-transaction, so a partial batch is never observed.
	//
	// Subscribe registers asynchronously relative to the caller, so
	// the delivery side must not take its initial snapshot until the
	// subscription is provably live: a change committed in that window
	// would produce no dirty mark and the watcher would stay stale
	// forever. The per-watch mark key is the handshake: the delivery
	// side keeps writing it until the callback echoes it back.
	go func() {
		var once sync.Once
		prefix := Key(collection, "")
		err := s.db.Subscribe(ctx, func(kv *badger.KVList) error {
			for _, item := range kv.Kv {
				if bytes.Equal(item.Key, mark) {
					once.Do(func() { close(ready) })
					continue
				}
				select {
				case dirty <- struct{}{}:
				default:
				}
			}
			return nil
		}, []pb.Match{{Prefix: prefix}, {Prefix: mark}})
		if err != nil && !errors.Is(err, context.Canceled) && s.logger != nil {
			s.logger.Warn("store subscription ended", "collection", collection, "error", err)
		}
		// Subscribe only returns once the subscription is gone, so the
		// watch can no longer observe changes and must close rather
		// than go quiet.
		close(dead)
	}()

	// Delivery side: wait for registration, then the initial snapshot,
	// then one re-read per dirty mark.
	go func() {
		defer close(out)
		defer s.clearWatchMark(mark)

		if !awaitRegistration(ctx, s, mark, ready, dead) {
			return
		}

		send := func() bool {
			snapshot, err := load(ctx)
			if err != nil {
				if s.logger != nil && !errors.Is(err, context.Canceled) {
					s.logger.Warn("watch snapshot load failed", "collection", collection, "error", err)
				}
				return true // transient; keep watching
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-dead:
				return
			case <-dirty:
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

// awaitRegistration writes the watch mark until the subscription
// callback echoes it. A write committed before the subscription
// registered is never echoed, so the write retries on a short ticker;
// once any echo arrives, every later commit is guaranteed to reach the
// callback. Returns false when the context ends or the subscription
// dies first.
func awaitRegistration(ctx context.Context, s *Store, mark []byte, ready, dead <-chan struct{}) bool {
	retry := time.NewTicker(10 * time.Millisecond)
	defer retry.Stop()
	for {
		err := withTxn(ctx, s.db, func(txn *badger.Txn) error {
			return txn.Set(mark, nil)
		})
		if err != nil {
			if s.logger != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("watch registration write failed", "error", err)
			}
			return false
		}
		select {
		case <-ready:
			return true
		case <-dead:
			return false
		case <-ctx.Done():
			return false
		case <-retry.C:
		}
	}
}

// clearWatchMark removes a watch's registration mark. Failure only
// leaves a stray mark key behind, so it is not surfaced.
func (s *Store) clearWatchMark(mark []byte) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(mark)
	})
	if err != nil && s.logger != nil {
		s.logger.Debug("watch mark cleanup failed", "error", err)
	}
}

// WatchAgentsByOwner streams snapshots of one user's agent list.
func (s *Store) WatchAgentsByOwner(ctx context.Context, uid string) <-chan []datatypes.Agent {
	return watchQuery(ctx, s, CollectionAgents, func(ctx context.Context) ([]datatypes.Agent, error) {
		return s.AgentsByOwner(ctx, uid)
	})
}

// WatchPublicAgents streams snapshots of the public agent list.
func (s *Store) WatchPublicAgents(ctx context.Context) <-chan []datatypes.Agent {
	return watchQuery(ctx, s, CollectionAgents, func(ctx context.Context) ([]datatypes.Agent, error) {
		return s.PublicAgents(ctx)
	})
}

// WatchAgent streams snapshots of one agent document as seen by uid.
// A missing agent, or another user's private agent, is delivered as
// nil, the same shape single-agent reads present, so a watcher cannot
// probe for private agents it could not fetch.
func (s *Store) WatchAgent(ctx context.Context, id, uid string) <-chan *datatypes.Agent {
	return watchQuery(ctx, s, CollectionAgents, func(ctx context.Context) (*datatypes.Agent, error) {
		agent, err := s.GetAgent(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if agent.UID != uid && !agent.IsPublic {
			return nil, nil
		}
		return agent, nil
	})
}

// WatchLogsByOwner streams snapshots of one user's logs, newest first.
func (s *Store) WatchLogsByOwner(ctx context.Context, uid string) <-chan []datatypes.Log {
	return watchQuery(ctx, s, CollectionLogs, func(ctx context.Context) ([]datatypes.Log, error) {
		return s.LogsByOwner(ctx, uid)
	})
}

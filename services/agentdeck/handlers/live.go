// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/middleware"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/observability"
	"github.com/agentdeckhq/agentdeck/services/agentdeck/store"
)

// LiveRequest is a client message on the live websocket.
// action is "watch" or "unwatch"; target selects the query.
type LiveRequest struct {
	Action  string `json:"action"`
	Target  string `json:"target"`            // "agents", "agent", "explore", "logs"
	AgentID string `json:"agentId,omitempty"` // required for target "agent"
}

// LiveMessage is a server push: one full-state snapshot of the watched
// query, repeated on every observed change.
type LiveMessage struct {
	Action string      `json:"action"` // "snapshot" or "error"
	Target string      `json:"target"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// liveConn serializes websocket writes; snapshots for different
// watches arrive from independent goroutines.
type liveConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (l *liveConn) sendJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write live websocket JSON", "error", err)
	}
	return err
}

// Live handles GET /v1/live/ws. Each watch delivers an initial
// snapshot immediately and a fresh one after every committed change,
// until the client unwatches or the connection closes. Closing the
// connection cancels every watch; no snapshot is delivered afterwards.
func Live(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.RequestLogger(c, "Live")

		identity, ok := middleware.RequireIdentity(c)
		if !ok {
			return
		}

		ws, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		logger.Info("Live websocket client connected", "uid", identity.UID)

		conn := &liveConn{ws: ws}

		// Connection-scoped root context: closing the socket tears
		// down every watch.
		rootCtx, rootCancel := context.WithCancel(context.Background())
		defer rootCancel()

		cancels := map[string]context.CancelFunc{}
		defer func() {
			for _, cancel := range cancels {
				cancel()
			}
		}()

		watchKey := func(req LiveRequest) string {
			if req.Target == "agent" {
				return req.Target + ":" + req.AgentID
			}
			return req.Target
		}

		startWatch := func(req LiveRequest) {
			key := watchKey(req)
			if _, exists := cancels[key]; exists {
				return // already watching
			}
			ctx, cancel := context.WithCancel(rootCtx)
			cancels[key] = cancel

			var pump func()
			switch req.Target {
			case "agents":
				ch := st.WatchAgentsByOwner(ctx, identity.UID)
				pump = func() {
					for snapshot := range ch {
						if conn.sendJSON(LiveMessage{Action: "snapshot", Target: key, Data: snapshot}) != nil {
							return
						}
					}
				}
			case "explore":
				ch := st.WatchPublicAgents(ctx)
				pump = func() {
					for snapshot := range ch {
						if conn.sendJSON(LiveMessage{Action: "snapshot", Target: key, Data: snapshot}) != nil {
							return
						}
					}
				}
			case "agent":
				// Same visibility fold as the single-agent fetch: a
				// foreign private agent looks identical to a missing one.
				ch := st.WatchAgent(ctx, req.AgentID, identity.UID)
				pump = func() {
					for snapshot := range ch {
						if conn.sendJSON(LiveMessage{Action: "snapshot", Target: key, Data: snapshot}) != nil {
							return
						}
					}
				}
			case "logs":
				ch := st.WatchLogsByOwner(ctx, identity.UID)
				pump = func() {
					for snapshot := range ch {
						if conn.sendJSON(LiveMessage{Action: "snapshot", Target: key, Data: snapshot}) != nil {
							return
						}
					}
				}
			default:
				cancel()
				delete(cancels, key)
				_ = conn.sendJSON(LiveMessage{Action: "error", Target: req.Target, Error: "unknown watch target"})
				return
			}

			if m := observability.DefaultMetrics; m != nil {
				m.WatchStarted(req.Target)
			}
			target := req.Target
			go func() {
				defer func() {
					if m := observability.DefaultMetrics; m != nil {
						m.WatchEnded(target)
					}
				}()
				pump()
			}()
		}

		for {
			var req LiveRequest
			if err := ws.ReadJSON(&req); err != nil {
				logger.Info("Live websocket client disconnected", "error", err.Error())
				return
			}

			switch req.Action {
			case "watch":
				startWatch(req)
			case "unwatch":
				key := watchKey(req)
				if cancel, ok := cancels[key]; ok {
					cancel()
					delete(cancels, key)
				}
			default:
				_ = conn.sendJSON(LiveMessage{Action: "error", Target: req.Target, Error: "unknown action"})
			}
		}
	}
}

// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the AgentDeck service.
//
// # Identity
//
// Real authentication is out of scope for this build. IdentityMiddleware
// injects a fixed demo identity into every request, the way a signed-in
// session would, so handlers always see an acting user. The UID can be
// overridden per request with the X-AgentDeck-UID header, which is what
// the ownership tests and multi-user demos use.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentdeckhq/agentdeck/services/agentdeck/workflow"
)

// identityKey is the gin context key for the acting identity.
// A typed key string avoids collisions with other context values.
const identityKey = "agentdeck_identity"

// uidHeader optionally overrides the demo UID for a single request.
const uidHeader = "X-AgentDeck-UID"

// Demo identity constants, injected when no override header is present.
const (
	DemoUID         = "demo-user-id"
	demoDisplayName = "Demo User"
	demoPhotoURL    = "https://i.pravatar.cc/150?u=demo-user"
)

// SetIdentity stores the acting identity in the gin context.
func SetIdentity(c *gin.Context, identity workflow.Identity) {
	c.Set(identityKey, identity)
}

// GetIdentity retrieves the acting identity from the gin context.
// The bool is false when no identity middleware ran.
func GetIdentity(c *gin.Context) (workflow.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return workflow.Identity{}, false
	}
	identity, ok := v.(workflow.Identity)
	return identity, ok
}

// IdentityMiddleware injects the stubbed always-logged-in identity.
func IdentityMiddleware() gin.HandlerFunc {
	displayName := demoDisplayName
	photoURL := demoPhotoURL

	return func(c *gin.Context) {
		identity := workflow.Identity{
			UID:         DemoUID,
			DisplayName: &displayName,
			PhotoURL:    &photoURL,
		}
		if uid := c.GetHeader(uidHeader); uid != "" {
			identity.UID = uid
		}
		SetIdentity(c, identity)
		c.Next()
	}
}

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns each request an id for log correlation,
// honoring a caller-provided one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// RequestLogger returns a logger annotated with the request id.
func RequestLogger(c *gin.Context, handler string) *slog.Logger {
	requestID := c.GetString("request_id")
	return slog.With("request_id", requestID, "handler", handler)
}

// RequireIdentity aborts requests that somehow arrive without an
// identity. With the middleware installed this never fires; it exists
// so handlers can assume an identity is present.
func RequireIdentity(c *gin.Context) (workflow.Identity, bool) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not signed in."})
		c.Abort()
	}
	return identity, ok
}

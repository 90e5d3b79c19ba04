// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// serverURL returns the AgentDeck server base URL.
func serverURL() string {
	if url := os.Getenv("AGENTDECK_URL"); url != "" {
		return url
	}
	return "http://localhost:12300"
}

// cliUID returns the identity to act as. The demo identity applies when
// nothing is set.
func cliUID() string {
	return os.Getenv("AGENTDECK_UID")
}

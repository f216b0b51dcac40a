package mcp

import (
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates everything the MCP server needs.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Knowledge serves ingest, questions and removal.
	Knowledge driving.KnowledgeService

	// Metrics, when set, is mounted at /metrics in HTTP mode.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	return nil
}

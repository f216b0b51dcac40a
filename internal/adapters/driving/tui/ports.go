// Package tui provides an interactive chat interface over a user's documents.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates what the chat UI needs.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Knowledge answers questions and lists documents.
	Knowledge driving.KnowledgeService

	// UserID scopes every question to one user's documents.
	UserID string
}

// NewPorts creates a new Ports aggregate.
func NewPorts(knowledge driving.KnowledgeService, userID string) *Ports {
	return &Ports{
		Knowledge: knowledge,
		UserID:    userID,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	if p.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

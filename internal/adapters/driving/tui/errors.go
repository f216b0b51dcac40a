package tui

import "errors"

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("tui: knowledge service is required")

// ErrMissingUser is returned when no user is selected.
var ErrMissingUser = errors.New("tui: user id is required")

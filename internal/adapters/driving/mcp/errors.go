// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ingest documents, ask questions and manage a
// user's ledger through the knowledge service.
package mcp

import "errors"

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")

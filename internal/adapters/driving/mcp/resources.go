package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// ledgerEntry is the JSON form of one ledger row.
type ledgerEntry struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadedAt string `json:"uploaded_at"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "users/{userId}/documents",
		Name:        "user-documents",
		Description: "Ledger of documents uploaded by a user",
		MIMEType:    "application/json",
	}, s.handleLedgerResource)
}

// handleLedgerResource returns a user's ledger.
func (s *Server) handleLedgerResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	userID := extractUserID(req.Params.URI)
	if userID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ledger, err := s.ports.Knowledge.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	entries := make([]ledgerEntry, len(ledger))
	for i, e := range ledger {
		entries[i] = ledgerEntry{
			Filename:   e.Filename,
			ChunkCount: e.ChunkCount,
			UploadedAt: e.UploadedAt.UTC().Format(time.RFC3339),
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling ledger: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractUserID extracts the user ID from a URI like docqa://users/{userId}/documents.
func extractUserID(uri string) string {
	const prefix = uriScheme + "users/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

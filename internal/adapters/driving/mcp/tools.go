package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	UserID   string `json:"user_id" jsonschema:"the user whose index receives the document"`
	Filename string `json:"filename" jsonschema:"document name including extension, used to detect the format"`
	Content  string `json:"content" jsonschema:"document content, plain text or base64"`
	Base64   bool   `json:"base64,omitempty" jsonschema:"true when content is base64 encoded (binary formats such as PDF)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
	Rebuilt  bool   `json:"rebuilt"`
	Reason   string `json:"reason,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	UserID   string `json:"user_id" jsonschema:"the user whose documents ground the answer"`
	Question string `json:"question" jsonschema:"the question to answer"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string         `json:"answer"`
	Grounded bool           `json:"grounded"`
	Sources  []SourceOutput `json:"sources,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// SourceOutput is one passage used as context.
type SourceOutput struct {
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
}

// RemoveInput is the input schema for the remove tool.
type RemoveInput struct {
	UserID   string `json:"user_id" jsonschema:"the user owning the document"`
	Filename string `json:"filename" jsonschema:"the document to remove"`
}

// RemoveOutput is the output schema for the remove tool.
type RemoveOutput struct {
	Filename           string `json:"filename"`
	RemainingDocuments int    `json:"remaining_documents"`
	RemainingChunks    int    `json:"remaining_chunks"`
}

// ListInput is the input schema for the list_documents tool.
type ListInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose documents are listed"`
}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one ledger entry.
type DocumentOutput struct {
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	UploadedAt string `json:"uploaded_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Add a document to a user's index",
	}, s.handleIngest)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the user's documents as context",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove",
		Description: "Remove a document from a user's index",
	}, s.handleRemove)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents uploaded by a user",
	}, s.handleList)
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	content := []byte(input.Content)
	if input.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(input.Content)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("decoding content: %w", err)
		}
		content = decoded
	}

	res, err := s.ports.Knowledge.Ingest(ctx, input.UserID, input.Filename, bytes.NewReader(content))
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		Filename: res.Filename,
		Status:   string(res.Status),
		Chunks:   res.ChunkCount,
		Rebuilt:  res.Rebuilt,
		Reason:   res.Reason,
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, retrieval, err := s.ports.Knowledge.AskText(ctx, input.UserID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{Answer: answer}
	if retrieval != nil {
		output.Grounded = retrieval.IsGrounded()
		output.Reason = retrieval.Reason
		for _, p := range retrieval.Passages {
			output.Sources = append(output.Sources, SourceOutput{
				Filename: p.Chunk.Source,
				Distance: p.Distance,
			})
		}
	}

	return nil, output, nil
}

// handleRemove handles the remove tool invocation.
func (s *Server) handleRemove(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveInput,
) (*mcp.CallToolResult, RemoveOutput, error) {
	res, err := s.ports.Knowledge.Remove(ctx, input.UserID, input.Filename)
	if err != nil {
		return nil, RemoveOutput{}, err
	}

	return nil, RemoveOutput{
		Filename:           res.Filename,
		RemainingDocuments: res.RemainingDocuments,
		RemainingChunks:    res.RemainingChunks,
	}, nil
}

// handleList handles the list_documents tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	ledger, err := s.ports.Knowledge.ListDocuments(ctx, input.UserID)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentOutput, len(ledger)),
		Count:     len(ledger),
	}
	for i, e := range ledger {
		output.Documents[i] = DocumentOutput{
			Filename:   e.Filename,
			Chunks:     e.ChunkCount,
			UploadedAt: e.UploadedAt.UTC().Format(time.RFC3339),
		}
	}

	return nil, output, nil
}

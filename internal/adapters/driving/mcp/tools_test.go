package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestServer(t *testing.T, k *mockKnowledgeService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Knowledge: k})
	require.NoError(t, err)
	return server
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text content", func(t *testing.T) {
		k := &mockKnowledgeService{}
		server := newTestServer(t, k)

		input := IngestInput{UserID: "alice", Filename: "notes.txt", Content: "hello"}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "alice", k.lastUser)
		assert.Equal(t, "hello", k.ingested["notes.txt"])
		assert.Equal(t, "indexed", output.Status)
		assert.Equal(t, 1, output.Chunks)
	})

	t.Run("base64 content is decoded", func(t *testing.T) {
		k := &mockKnowledgeService{}
		server := newTestServer(t, k)

		input := IngestInput{
			UserID:   "alice",
			Filename: "report.pdf",
			Content:  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
			Base64:   true,
		}
		_, _, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", k.ingested["report.pdf"])
	})

	t.Run("invalid base64 returns error", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeService{})

		input := IngestInput{UserID: "alice", Filename: "a.pdf", Content: "!!!", Base64: true}
		_, _, err := server.handleIngest(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding content")
	})

	t.Run("skipped document reports reason", func(t *testing.T) {
		k := &mockKnowledgeService{ingestRes: &domain.IngestResult{
			Filename: "empty.txt",
			Status:   domain.IngestSkipped,
			Reason:   "no text extracted",
		}}
		server := newTestServer(t, k)

		_, output, err := server.handleIngest(ctx, nil, IngestInput{UserID: "alice", Filename: "empty.txt"})

		require.NoError(t, err)
		assert.Equal(t, "skipped", output.Status)
		assert.Equal(t, "no text extracted", output.Reason)
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("grounded answer lists sources", func(t *testing.T) {
		k := &mockKnowledgeService{
			answer: "Practise daily.",
			retrieval: &domain.Retrieval{
				Grounding: domain.Grounded,
				Passages: []domain.Passage{
					{Chunk: domain.Chunk{Source: "piano.txt"}, Distance: 0.4},
				},
			},
		}
		server := newTestServer(t, k)

		_, output, err := server.handleAsk(ctx, nil, AskInput{UserID: "bob", Question: "how?"})

		require.NoError(t, err)
		assert.Equal(t, "bob", k.lastUser)
		assert.Equal(t, "Practise daily.", output.Answer)
		assert.True(t, output.Grounded)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "piano.txt", output.Sources[0].Filename)
		assert.InDelta(t, 0.4, output.Sources[0].Distance, 1e-9)
	})

	t.Run("ungrounded answer carries reason", func(t *testing.T) {
		k := &mockKnowledgeService{
			answer:    "Generally...",
			retrieval: &domain.Retrieval{Grounding: domain.Ungrounded, Reason: "no documents indexed"},
		}
		server := newTestServer(t, k)

		_, output, err := server.handleAsk(ctx, nil, AskInput{UserID: "bob", Question: "?"})

		require.NoError(t, err)
		assert.False(t, output.Grounded)
		assert.Empty(t, output.Sources)
		assert.Equal(t, "no documents indexed", output.Reason)
	})

	t.Run("generation failure is returned", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeService{err: domain.ErrLLMUnavailable})

		_, _, err := server.handleAsk(ctx, nil, AskInput{UserID: "bob", Question: "?"})

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestServer_handleRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("reports remaining counts", func(t *testing.T) {
		k := &mockKnowledgeService{removeRes: &domain.RemoveResult{
			Filename:           "a.txt",
			RemainingDocuments: 2,
			RemainingChunks:    7,
		}}
		server := newTestServer(t, k)

		_, output, err := server.handleRemove(ctx, nil, RemoveInput{UserID: "carol", Filename: "a.txt"})

		require.NoError(t, err)
		assert.Equal(t, "a.txt", output.Filename)
		assert.Equal(t, 2, output.RemainingDocuments)
		assert.Equal(t, 7, output.RemainingChunks)
	})

	t.Run("unknown document", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeService{err: domain.ErrNotFound})

		_, _, err := server.handleRemove(ctx, nil, RemoveInput{UserID: "carol", Filename: "nope.txt"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleList(t *testing.T) {
	ctx := context.Background()
	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns ledger entries", func(t *testing.T) {
		k := &mockKnowledgeService{ledger: domain.Ledger{
			{Filename: "a.txt", ChunkCount: 3, UploadedAt: uploaded},
			{Filename: "b.pdf", ChunkCount: 5, UploadedAt: uploaded},
		}}
		server := newTestServer(t, k)

		_, output, err := server.handleList(ctx, nil, ListInput{UserID: "dave"})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "a.txt", output.Documents[0].Filename)
		assert.Equal(t, 5, output.Documents[1].Chunks)
		assert.Equal(t, "2026-03-01T12:00:00Z", output.Documents[0].UploadedAt)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeService{err: errors.New("disk gone")})

		_, _, err := server.handleList(ctx, nil, ListInput{UserID: "dave"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk gone")
	})
}

package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	ingested  map[string]string
	ingestRes *domain.IngestResult
	answer    string
	retrieval *domain.Retrieval
	removeRes *domain.RemoveResult
	ledger    domain.Ledger
	err       error

	lastUser string
}

func (m *mockKnowledgeService) Ingest(
	_ context.Context, userID, filename string, r io.Reader,
) (*domain.IngestResult, error) {
	m.lastUser = userID
	if m.err != nil {
		return nil, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if m.ingested == nil {
		m.ingested = make(map[string]string)
	}
	m.ingested[filename] = string(data)
	if m.ingestRes != nil {
		return m.ingestRes, nil
	}
	return &domain.IngestResult{Filename: filename, Status: domain.IngestIndexed, ChunkCount: 1}, nil
}

func (m *mockKnowledgeService) Prepare(_ context.Context, userID, _ string) (*domain.Prepared, error) {
	m.lastUser = userID
	return &domain.Prepared{}, m.err
}

func (m *mockKnowledgeService) Ask(
	_ context.Context, userID, _ string,
) (<-chan domain.Fragment, *domain.Retrieval, error) {
	m.lastUser = userID
	if m.err != nil {
		return nil, nil, m.err
	}
	ch := make(chan domain.Fragment, 1)
	ch <- domain.Fragment{Text: m.answer}
	close(ch)
	return ch, m.retrieval, nil
}

func (m *mockKnowledgeService) AskText(_ context.Context, userID, _ string) (string, *domain.Retrieval, error) {
	m.lastUser = userID
	if m.err != nil {
		return "", nil, m.err
	}
	return m.answer, m.retrieval, nil
}

func (m *mockKnowledgeService) Remove(_ context.Context, userID, _ string) (*domain.RemoveResult, error) {
	m.lastUser = userID
	return m.removeRes, m.err
}

func (m *mockKnowledgeService) ListDocuments(_ context.Context, userID string) (domain.Ledger, error) {
	m.lastUser = userID
	return m.ledger, m.err
}

func (m *mockKnowledgeService) Repair(_ context.Context, userID string) (*domain.RepairReport, error) {
	m.lastUser = userID
	return &domain.RepairReport{UserID: userID}, m.err
}

func (m *mockKnowledgeService) Recover(context.Context) ([]domain.RepairReport, error) {
	return nil, m.err
}

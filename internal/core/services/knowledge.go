package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// errInterrupted finishes journal entries left open by a crash.
var errInterrupted = errors.New("interrupted before completion")

// KnowledgeService implements the per-user ingest, question and removal
// flows. Every operation on a user holds that user's lock for its whole
// index phase; generation runs after the lock is released.
type KnowledgeService struct {
	index     *IndexManager
	retriever *retriever
	prompts   *PromptAssembler
	llm       driven.LLMService
	locks     *userLocks
	journal   driven.Journal
	metrics   driven.Metrics
	genOpts   driven.GenerateOptions
}

// NewKnowledgeService wires the index manager, retrieval policy and prompt
// assembler around the given collaborators. llm may be nil, in which case
// Prepare still works and Ask fails with ErrLLMUnavailable. A nil embedder
// makes every index operation fail with ErrEmbeddingUnavailable.
func NewKnowledgeService(
	store driven.IndexStore,
	factory driven.VectorIndexFactory,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	extractor driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	settings domain.IndexSettings,
) *KnowledgeService {
	if embedder == nil {
		embedder = missingEmbedder{}
	}
	index := NewIndexManager(store, factory, embedder, extractor, pipeline, settings.Workers)
	return &KnowledgeService{
		index:     index,
		retriever: newRetriever(embedder, index.pool, settings.TopK, settings.RelevanceThreshold),
		prompts:   NewPromptAssembler(nil),
		llm:       llm,
		locks:     newUserLocks(),
		journal:   nopJournal{},
		metrics:   nopMetrics{},
	}
}

// SetJournal sets the operation journal used for crash recovery.
func (s *KnowledgeService) SetJournal(j driven.Journal) {
	if j != nil {
		s.journal = j
	}
}

// SetMetrics sets the metrics sink.
func (s *KnowledgeService) SetMetrics(m driven.Metrics) {
	if m != nil {
		s.metrics = m
		s.index.SetMetrics(m)
	}
}

// SetPromptStore sets where prompt templates are loaded from.
func (s *KnowledgeService) SetPromptStore(p driven.PromptStore) {
	s.prompts = NewPromptAssembler(p)
}

// SetGenerateOptions sets the options passed to the LLM.
func (s *KnowledgeService) SetGenerateOptions(opts driven.GenerateOptions) {
	s.genOpts = opts
}

// Ingest stores an uploaded file and indexes it.
func (s *KnowledgeService) Ingest(
	ctx context.Context, userID, filename string, r io.Reader,
) (*domain.IngestResult, error) {
	if err := validateRequest(userID, filename); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var result *domain.IngestResult
	err = s.journaled(ctx, userID, domain.OpIngest, filename, func() error {
		var err error
		result, err = s.index.AddDocument(ctx, userID, filename, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IngestCompleted(result.Status)
	logger.WithUser(userID).WithField("file", filename).WithField("chunks", result.ChunkCount).
		Infof("ingest %s", result.Status)
	return result, nil
}

// Prepare runs retrieval and assembles the prompt.
func (s *KnowledgeService) Prepare(ctx context.Context, userID, question string) (*domain.Prepared, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question required: %w", domain.ErrInvalidInput)
	}

	retrieval := s.retrieve(ctx, userID, question)
	return &domain.Prepared{
		Retrieval: retrieval,
		Prompt:    s.prompts.Assemble(question, retrieval),
	}, nil
}

// retrieve loads the user's index under the lock and applies the
// retrieval policy.
func (s *KnowledgeService) retrieve(ctx context.Context, userID, question string) domain.Retrieval {
	unlock := s.locks.Lock(userID)
	defer unlock()

	idx, reason := s.index.LoadForQuery(ctx, userID)
	if idx == nil {
		return domain.Retrieval{Grounding: domain.Ungrounded, Reason: reason}
	}
	return s.retriever.Retrieve(ctx, idx, question)
}

// Ask answers question as a stream of fragments. Fragments are relayed
// unchanged; a failure mid-stream arrives as a final fragment with Err set.
func (s *KnowledgeService) Ask(
	ctx context.Context, userID, question string,
) (<-chan domain.Fragment, *domain.Retrieval, error) {
	if s.llm == nil {
		return nil, nil, domain.ErrLLMUnavailable
	}
	prepared, err := s.Prepare(ctx, userID, question)
	if err != nil {
		return nil, nil, err
	}

	upstream, err := s.llm.Stream(ctx, prepared.Prompt, s.genOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("generate: %w", err)
	}
	s.metrics.QueryServed(prepared.Retrieval.Grounding)

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		for f := range upstream {
			select {
			case out <- f:
			case <-ctx.Done():
				for range upstream {
				}
				return
			}
		}
	}()
	return out, &prepared.Retrieval, nil
}

// AskText answers question and returns the complete text.
func (s *KnowledgeService) AskText(ctx context.Context, userID, question string) (string, *domain.Retrieval, error) {
	stream, retrieval, err := s.Ask(ctx, userID, question)
	if err != nil {
		return "", nil, err
	}
	text, err := domain.Collect(stream)
	return text, retrieval, err
}

// Remove deletes filename and rebuilds the user's index without it.
func (s *KnowledgeService) Remove(ctx context.Context, userID, filename string) (*domain.RemoveResult, error) {
	if err := validateRequest(userID, filename); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var result *domain.RemoveResult
	err := s.journaled(ctx, userID, domain.OpRemove, filename, func() error {
		var err error
		result, err = s.index.DeleteDocument(ctx, userID, filename)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.WithUser(userID).WithField("file", filename).Info("document removed")
	return result, nil
}

// ListDocuments returns the user's ledger.
func (s *KnowledgeService) ListDocuments(ctx context.Context, userID string) (domain.Ledger, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.index.LoadLedger(ctx, userID)
}

// Repair checks and repairs one user's artifacts.
func (s *KnowledgeService) Repair(ctx context.Context, userID string) (*domain.RepairReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	var report *domain.RepairReport
	err := s.journaled(ctx, userID, domain.OpRepair, "", func() error {
		var err error
		report, err = s.index.Repair(ctx, userID)
		return err
	})
	return report, err
}

// Recover repairs every user with an operation the journal never saw
// finish, then closes those entries.
func (s *KnowledgeService) Recover(ctx context.Context) ([]domain.RepairReport, error) {
	ops, err := s.journal.Unfinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if len(ops) == 0 {
		return nil, nil
	}

	byUser := make(map[string][]string)
	var users []string
	for _, op := range ops {
		if _, seen := byUser[op.UserID]; !seen {
			users = append(users, op.UserID)
		}
		byUser[op.UserID] = append(byUser[op.UserID], op.ID)
	}

	var reports []domain.RepairReport
	var errs []error
	for _, userID := range users {
		logger.Info("Recovering index for %s after %d interrupted operation(s)", userID, len(byUser[userID]))
		report, err := s.Repair(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", userID, err))
			continue
		}
		reports = append(reports, *report)
		for _, id := range byUser[userID] {
			if err := s.journal.Finish(ctx, id, errInterrupted); err != nil {
				logger.Warn("Could not close journal entry %s: %v", id, err)
			}
		}
	}
	return reports, errors.Join(errs...)
}

// journaled records fn as an operation in the journal. Journal failures are
// logged and never fail the operation itself.
func (s *KnowledgeService) journaled(
	ctx context.Context, userID string, kind domain.OperationKind, target string, fn func() error,
) error {
	op := domain.Operation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Target:    target,
		Status:    domain.OpStarted,
		StartedAt: time.Now(),
	}
	if err := s.journal.Begin(ctx, op); err != nil {
		logger.Warn("Journal begin failed: %v", err)
	}
	opErr := fn()
	if err := s.journal.Finish(context.WithoutCancel(ctx), op.ID, opErr); err != nil {
		logger.Warn("Journal finish failed: %v", err)
	}
	return opErr
}

func validateRequest(userID, filename string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename required: %w", domain.ErrInvalidInput)
	}
	return nil
}

// nopJournal records nothing.
type nopJournal struct{}

func (nopJournal) Begin(context.Context, domain.Operation) error          { return nil }
func (nopJournal) Finish(context.Context, string, error) error            { return nil }
func (nopJournal) Unfinished(context.Context) ([]domain.Operation, error) { return nil, nil }
func (nopJournal) Recent(context.Context, string, int) ([]domain.Operation, error) {
	return nil, nil
}
func (nopJournal) Close() error { return nil }

// missingEmbedder stands in for an unconfigured embedding provider.
type missingEmbedder struct{}

func (missingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}
func (missingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}
func (missingEmbedder) Dimensions() int            { return 0 }
func (missingEmbedder) ModelName() string          { return "" }
func (missingEmbedder) Ping(context.Context) error { return domain.ErrEmbeddingUnavailable }
func (missingEmbedder) Close() error               { return nil }

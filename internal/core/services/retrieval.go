package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// retriever applies the retrieval policy: embed the question once, take
// the k nearest rows and accept them only when the nearest one is within
// the relevance threshold.
type retriever struct {
	embedder  driven.EmbeddingService
	pool      *workerPool
	topK      int
	threshold float64
}

func newRetriever(embedder driven.EmbeddingService, pool *workerPool, topK int, threshold float64) *retriever {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if threshold <= 0 {
		threshold = domain.DefaultRelevanceThreshold
	}
	return &retriever{embedder: embedder, pool: pool, topK: topK, threshold: threshold}
}

// Retrieve classifies question against idx. It never fails: every problem
// degrades to an ungrounded result with a reason.
func (r *retriever) Retrieve(ctx context.Context, idx *userIndex, question string) domain.Retrieval {
	if idx == nil || idx.vectors == nil || len(idx.chunks) == 0 {
		return domain.Retrieval{Grounding: domain.Ungrounded, Reason: "no index"}
	}

	var hits []driven.VectorHit
	err := r.pool.Do(ctx, func() error {
		query, err := r.embedder.Embed(ctx, question)
		if err != nil {
			return err
		}
		hits, err = idx.vectors.Search(query, r.topK)
		return err
	})
	if err != nil {
		logger.Warn("Retrieval failed, answering without context: %v", err)
		return domain.Retrieval{Grounding: domain.Ungrounded, Reason: "retrieval failed"}
	}

	passages := make([]domain.Passage, 0, len(hits))
	for _, h := range hits {
		// A row past the chunk store belongs to a stale snapshot.
		if h.Row < 0 || h.Row >= len(idx.chunks) {
			continue
		}
		passages = append(passages, domain.Passage{Chunk: idx.chunks[h.Row], Distance: h.Distance})
	}

	if len(passages) == 0 {
		return domain.Retrieval{Grounding: domain.Ungrounded, Reason: "no matches"}
	}
	if passages[0].Distance > r.threshold {
		logger.Debug("Nearest distance %.4f above threshold %.2f", passages[0].Distance, r.threshold)
		return domain.Retrieval{Grounding: domain.Ungrounded, Reason: "below relevance threshold"}
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Chunk.Content
	}
	return domain.Retrieval{
		Grounding: domain.Grounded,
		Passages:  passages,
		Context:   strings.Join(texts, "\n\n"),
	}
}

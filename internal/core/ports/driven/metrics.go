package driven

import (
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Metrics receives operational measurements from core services.
type Metrics interface {
	// IngestCompleted counts a finished ingest by outcome.
	IngestCompleted(status domain.IngestStatus)

	// Rebuilt counts a full index rebuild. trigger is one of a small fixed
	// set ("add", "query", "ledger", "repair").
	Rebuilt(trigger string)

	// QueryServed counts an answered question by grounding.
	QueryServed(grounding domain.Grounding)

	// ObserveEmbedding records the latency of one embedding batch.
	ObserveEmbedding(d time.Duration)
}

// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts text from one file format
//   - NormaliserRegistry: Selects the normaliser for an upload
//   - PostProcessorPipeline: Splits extracted text into chunks
//   - VectorIndexFactory: Creates and decodes exhaustive vector indexes
//   - IndexStore: Per-user persistence of vectors, chunks, ledger and source files
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, questions return ErrLLMUnavailable.
//   - Journal: Operation journal used for startup repair.
//   - Metrics: Operational counters.
//   - PromptStore: Editable prompt templates. Without it, built-in templates are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven

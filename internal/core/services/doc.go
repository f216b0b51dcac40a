// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// KnowledgeService is the entry point for per-user ingest, question
// answering and removal. It serialises work per user and delegates index
// maintenance to IndexManager, which keeps each user's vector index,
// chunk store and ledger aligned.
package services

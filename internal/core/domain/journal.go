package domain

import "time"

// OperationKind names a mutating index operation.
type OperationKind string

// Journaled operations.
const (
	OpIngest  OperationKind = "ingest"
	OpRemove  OperationKind = "remove"
	OpRebuild OperationKind = "rebuild"
	OpRepair  OperationKind = "repair"
)

// OperationStatus is the lifecycle state of a journaled operation.
type OperationStatus string

// Operation states.
const (
	OpStarted   OperationStatus = "started"
	OpSucceeded OperationStatus = "succeeded"
	OpFailed    OperationStatus = "failed"
)

// Operation is one entry in the operation journal.
// An entry left in OpStarted after a crash marks the user for repair.
type Operation struct {
	// ID uniquely identifies the operation.
	ID string

	// UserID is the user whose index was touched.
	UserID string

	// Kind is the operation type.
	Kind OperationKind

	// Target is the filename involved, if any.
	Target string

	// Status is the lifecycle state.
	Status OperationStatus

	// Error holds the failure message for OpFailed.
	Error string

	// StartedAt is when the operation began.
	StartedAt time.Time

	// FinishedAt is when the operation ended. Zero while running.
	FinishedAt time.Time
}

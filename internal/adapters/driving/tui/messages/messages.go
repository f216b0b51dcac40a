// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerStarted carries the retrieval outcome and the fragment stream of a
// newly asked question.
type AnswerStarted struct {
	Retrieval *domain.Retrieval
	Stream    <-chan domain.Fragment
}

// FragmentReceived carries one piece of a streamed answer.
type FragmentReceived struct {
	Text string
}

// AnswerFinished signals the end of an answer. Err is set when the stream
// broke or the question could not be asked.
type AnswerFinished struct {
	Err error
}

// DocumentsLoaded carries the user's ledger.
type DocumentsLoaded struct {
	Ledger domain.Ledger
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

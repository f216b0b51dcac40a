package domain

import "strings"

// Fragment is one piece of a streamed answer.
// A fragment with Err set is terminal: no fragment follows it.
type Fragment struct {
	// Text is the generated text.
	Text string

	// Err reports a mid-stream failure.
	Err error
}

// Collect drains a fragment stream into a single string.
// It returns the text received so far together with the terminal error, if any.
func Collect(stream <-chan Fragment) (string, error) {
	var b strings.Builder
	for f := range stream {
		if f.Err != nil {
			return b.String(), f.Err
		}
		b.WriteString(f.Text)
	}
	return b.String(), nil
}

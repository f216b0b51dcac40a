package domain

// Default prompt templates. Grounded takes the context block then the
// question; ungrounded takes only the question.
const (
	DefaultGroundedPrompt = "Use the context below to answer:\n\nContext:\n%s\n\nQ: %s\nA:"

	DefaultUngroundedPrompt = "No relevant info found in your uploaded docs. Answer generally:\n\nQ: %s\nA:"
)

package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptGrounded answers from retrieved context.
	// The template expects %s (context) then %s (question).
	PromptGrounded = "grounded"

	// PromptUngrounded answers when no relevant context was found.
	// The template expects a single %s (question).
	PromptUngrounded = "ungrounded"
)

package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// PromptAssembler builds the generation prompt from a retrieval outcome.
// The template is chosen by grounding alone.
type PromptAssembler struct {
	store driven.PromptStore
}

// NewPromptAssembler creates an assembler. A nil store uses the built-in
// templates.
func NewPromptAssembler(store driven.PromptStore) *PromptAssembler {
	return &PromptAssembler{store: store}
}

// Assemble returns the prompt for question.
func (a *PromptAssembler) Assemble(question string, r domain.Retrieval) string {
	if r.IsGrounded() {
		tmpl := a.template(driven.PromptGrounded, domain.DefaultGroundedPrompt, 2)
		return fmt.Sprintf(tmpl, r.Context, question)
	}
	tmpl := a.template(driven.PromptUngrounded, domain.DefaultUngroundedPrompt, 1)
	return fmt.Sprintf(tmpl, question)
}

// template loads a named template, falling back to def when the store has
// none or the template has the wrong number of %s verbs.
func (a *PromptAssembler) template(name, def string, verbs int) string {
	if a.store == nil {
		return def
	}
	tmpl, err := a.store.Load(name)
	if err != nil {
		logger.Debug("Using default %s prompt: %v", name, err)
		return def
	}
	if strings.Count(tmpl, "%s") != verbs || strings.Count(tmpl, "%") != verbs {
		logger.Warn("Prompt %q must contain exactly %d %%s placeholder(s), using default", name, verbs)
		return def
	}
	return tmpl
}

package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingKnowledgeService.Error(), ErrMissingUser.Error())
}

func TestErrMissingKnowledgeService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingKnowledgeService.Error(), "knowledge service")
}

func TestErrMissingUser_Message(t *testing.T) {
	assert.Contains(t, ErrMissingUser.Error(), "user id")
}

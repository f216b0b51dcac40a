package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", mcpServeCmd.Use)
	assert.NotNil(t, mcpServeCmd.Flags().Lookup("port"))
}

func TestMCPServeCmd_RejectsBadPort(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "mcp", "serve", "--port", "70000")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be between")
}

func TestMCPServeCmd_RequiresKnowledgeService(t *testing.T) {
	SetServices(nil)

	_, err := runCommand(t, "mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge service is required")
}

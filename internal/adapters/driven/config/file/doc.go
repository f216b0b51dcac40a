// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.docqa/config.toml)
//   - PromptStore: editable answer templates (~/.docqa/prompts/*.txt)
package file

// Package file provides filesystem-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML settings at <config dir>/config.toml, exposed as dot keys
//   - PromptStore: user-editable prompt templates at <config dir>/prompts/*.txt
package file

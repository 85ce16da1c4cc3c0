package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptChatSystem is the grounded system prompt. It must contain one %s
	// placeholder, replaced by the "[Source N]: ..." context block.
	PromptChatSystem = "chat_system"

	// PromptChatNoContext is the system prompt used when retrieval found
	// nothing. It has no placeholders.
	PromptChatNoContext = "chat_system_no_context"
)

package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Falls back to DefaultPrompts; unknown names return domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptRAGSystem is the system prompt for grounded answers.
	PromptRAGSystem = "rag_system"

	// PromptNoContext replaces the context block when retrieval found
	// nothing and the policy still asks for an answer.
	PromptNoContext = "no_context"
)

// DefaultPrompts are the built-in templates. Neither has placeholders.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptRAGSystem: `You are an AI assistant that answers questions using only the context provided with each question.

Rules:
1. Answer based only on the provided context. Do not use outside knowledge.
2. If the context does not contain the information needed, say that you don't have enough information to answer.
3. Cite your sources with the bracketed labels from the context, for example [1] or [2], and mention the document name and page when available.
4. Be concise but complete.`,

	PromptNoContext: `No grounding context was found in the indexed documents for this question.
Tell the user that the documents do not cover it. You may give a brief general answer, but state clearly that it is not based on their documents.`,
}

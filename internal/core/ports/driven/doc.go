// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Turns raw upload bytes into plain text and metadata
//   - NormaliserRegistry: Dispatches uploads by MIME type and extension
//   - Chunker: Splits normalised text into overlapping word windows
//   - ArtifactStore: Artifact and chunk persistence
//   - VectorStore: Embedding upsert and cosine search, scoped by artifact
//   - EmbeddingService: Generates vector embeddings
//   - ConversationStore: Chat session and message persistence
//   - PromptStore: User-editable prompt templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// This can be nil and the application degrades gracefully:
//
//   - LLMService: Language model generation. Without it, every chat turn
//     records the fallback answer.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven

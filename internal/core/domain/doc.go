// Package domain defines the core business entities for kacey.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Artifact: A parsed, uploaded document with metadata
//   - Chunk: An overlapping word window of an artifact, the unit of retrieval
//   - Embedding: The vector representation of exactly one chunk
//   - RetrievalResult: A chunk paired with its similarity to a query
//   - ComposedAnswer: A grounded reply with the sources it cites
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

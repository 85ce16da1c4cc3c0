// Package sqlite provides a SQLite-based implementation of the artifact,
// vector and conversation stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. All three stores share
// one database so the vector search can join chunks to their artifact's scope.
//
// # Schema
//
// The relational schema is managed through versioned migrations stored in the
// migrations/ directory and applied on open. The embeddings table is created
// separately by Provision; until then vector operations report
// domain.ErrVectorStoreUnprovisioned.
//
// # Search
//
// Embeddings are stored as little-endian float32 BLOBs and ranked in process
// by cosine similarity. This suits knowledge bases of up to a few hundred
// thousand chunks; larger deployments should use the postgres adapter.
//
// # Data Location
//
// By default, the database is stored at ~/.kacey/data/kacey.db
package sqlite

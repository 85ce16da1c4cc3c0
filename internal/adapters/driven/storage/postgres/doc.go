// Package postgres provides a Postgres implementation of the artifact,
// vector and conversation stores using github.com/lib/pq and the pgvector
// extension.
//
// Embeddings live in a vector column searched with the cosine distance
// operator (<=>). The embeddings table and the extension are created by
// Provision, which needs CREATE privileges; until then vector operations
// report domain.ErrVectorStoreUnprovisioned, detected from SQLSTATE 42P01.
package postgres

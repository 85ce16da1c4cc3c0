// Package migrations embeds the SQL schema for the SQLite store.
//
// Numbered *.up.sql files hold the relational schema and run on every open.
// vectors.sql creates the embeddings table and runs only when the store is
// provisioned.
package migrations

import "embed"

// FS contains all SQL files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

// Package store persists sweep runs, per-point trial outcomes, and the
// certificate artifacts each point produced.
//
// SQLite is the backing store: a single file per workspace, WAL mode so
// readers never block the sweep's writer. Certificate bodies are
// content-addressed by the same hash that seals them, so identical
// artifacts from different trials share one row.
//
// All reads use explicit ORDER BY clauses; two processes reading the
// same database see the same sequence.
package store

// Package cert defines the certificate artifact model: immutable,
// hash-stamped JSON records asserting numeric bounds and inequalities.
//
// Artifacts are maps of plain Go values (strings, ints, bools, nested
// maps and slices). All real-valued fields are decimal strings so that
// arbitrary precision survives the serialization boundary; binary
// floats are forbidden outright, at the type level in canonical
// serialization and by schema at emission.
//
// Identity is content-addressed: the sha256 stored under meta.sha256 is
// computed over the artifact's RFC 8785 canonical serialization with
// the hash field blanked, with domain separation. Re-hashing a loaded
// artifact reproduces the stored digest.
//
// Ingestion is schema-tolerant: consumers declare, per logical field,
// an ordered list of structural aliases covering historical artifact
// layouts; the first resolvable alias wins.
package cert

// Package schema validates certificate artifacts against per-kind CUE
// schemas before they enter a chain.
//
// Validation is structural: required blocks, field types and the
// decimal-string discipline for real values. Schemas are open, so the
// historical habit of carrying extra diagnostic fields never breaks
// older readers.
package schema

// Package harness runs end-to-end conformance scenarios: a YAML file
// names a window, a band layout and the tail constants; the harness
// executes the full certification pipeline at a pinned timestamp in a
// scratch directory and reduces the certificate chain to a small
// deterministic summary.
//
// Two runs of the same scenario produce byte-identical summaries, which
// makes the summaries suitable for golden-file comparison.
package harness

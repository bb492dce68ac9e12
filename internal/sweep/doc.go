// Package sweep runs the full certification pipeline over a rectangular
// (sigma, k0) grid, one pipeline per point, and logs margins and gaps.
//
// Every point is independent: window, band grid, band certificate, tail
// envelopes and rollup are computed in-process and the artifacts written
// under a per-point directory. A point that times out or errors lands in
// the failure ledger and the sweep moves on; only the surrounding
// machinery (config, output directory, database) can abort a run.
package sweep

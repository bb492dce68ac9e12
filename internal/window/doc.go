// Package window generates and parses the window configuration and
// band/grid artifacts that anchor a certificate chain.
//
// Parsers here are schema-tolerant: window parameters may sit at the
// top level or inside a nested block, the notch parameter answers to
// two names, and band lists come in four historical shapes. Writers
// emit the newest layout only.
package window

// Package normalisers provides implementations of the Normaliser interface
// for the supported upload formats. Each normaliser knows how to extract
// text content from a specific MIME type.
//
// Normalisers are registered with a Registry at startup; NewDefaultRegistry
// wires every built-in format.
package normalisers

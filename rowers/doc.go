// Package rowers contains reusable Rowers. Every Rower here keeps its result
// in exported fields, so that it can be serialized with codec.Default.
package rowers

// Package emitter writes block-style YAML line by line.
//
// The emitter never buffers a document: every value is written as soon as
// it is known, which lets an archive stream arbitrarily large sequences.
// Tokens are passed in already formatted; quoting is the caller's job.
package emitter

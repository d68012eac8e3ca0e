// Package task owns the editable inference task and turns it into the
// task_args JSON the relay accepts.
//
// # State
//
// Builder holds the InferenceTask a user edits. Every mutation goes through a
// Builder method, runs under the builder's lock, and is followed by a
// synchronous notification to subscribers with a snapshot of the new state.
// The builder enforces that at most one of the direct LoRA model and the
// custom LoRA reference is set, and that a change of base model family clears
// both and applies the family's step and cfg defaults.
//
// # Derivation
//
// Derive is a pure function of a snapshot plus an Env carrying the image
// encoder, pose asset resolver, and seed source. It nulls lora and controlnet
// when unused, rewrites custom LoRA references to download URLs, embeds the
// pose image as a data URL, rescales weights to integer percent, applies the
// turbo override (cfg 0, at most 4 steps, fixed scheduler), and draws a fresh
// seed every time.
//
// Deriver numbers each derivation. With stale discarding enabled a result
// whose sequence number has been superseded is dropped with
// ErrStaleDerivation; otherwise the last derivation to finish wins.
package task

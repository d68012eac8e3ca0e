// Package api binds the relay's /v1 endpoints to typed Go calls.
//
// Each binding delegates to a Requester (normally *transport.Client) and keeps
// no state of its own. Errors are returned exactly as the transport classified
// them; nothing here retries or re-wraps a *transport.Error into a new kind.
//
// # Bindings
//
// Application: wallet balance.
//
// Models: base model catalog and LoRA models filtered by base model type.
//
// Network: compute node statistics.
//
// Inference: task submission, status polling, and result images as data URLs.
//
// # Design Notes
//
// Task arguments arrive as an already-serialized JSON string produced by the
// task package. CreateTask sends it verbatim as task_args and adds vram_limit
// only when a limit was supplied. Weight rescaling and seed selection happen
// once, during derivation, never here.
package api

// Package trace is the structured logging layer of hdlfront.
//
// Events are grouped into spans (begin/end pairs) and points. Every event has
// a Scope (driver, pass, module, node) and the tracer's Level decides which
// scopes are emitted:
//
//	off     nothing
//	error   nothing unless the driver dumps the ring after a failure
//	phase   driver and pass boundaries (typecheck, populate, resolve)
//	detail  + per-module events
//	debug   + per-node events (instantiations, derived type infos)
//
// Storage is either a stream (events written immediately) or a ring buffer
// holding the most recent events for post-mortem dumps.
package trace

// Package diag defines the diagnostic model shared by the type checker and
// the driver.
//
// Producers emit diagnostics through a Reporter without knowing where they
// end up; the driver usually collects them in a Bag and hands the bag to
// internal/diagfmt for rendering. Package diag does no formatting or IO.
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error).
//   - Code – compact numeric identifier (see codes.go) with a stable string form.
//   - Message – short, actionable text.
//   - Primary – the source.Span the finding points to.
//   - Notes – optional secondary spans, e.g. where a conflicting constraint
//     came from.
//
// Warnings produced while type checking a module (the "warning sink" of the
// checker) are ordinary SevWarning diagnostics.
package diag

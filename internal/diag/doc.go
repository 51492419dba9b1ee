// Package diag defines the error and diagnostic model shared by all
// translation phases.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary location – the definition, block and statement at fault.
//   - Notes – optional secondary locations/messages for additional context.
//
// Error is the failure value returned by the analysis and emission phases.
// Every Error is local: it fails the definition named by its location, the
// driver degrades that definition to a placeholder and reports dependents as
// failed dependencies. Nothing in this package aborts a run.
//
// # Emitting diagnostics
//
// Phases return *Error values; the driver converts them with
// Error.Diagnostic and collects them in a Bag through a BagReporter.
// The Bag supports sorting and deduplication so that output is
// deterministic regardless of how many workers produced it.
package diag

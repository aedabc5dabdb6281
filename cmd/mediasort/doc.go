// Package main hosts the mediasort CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration (file, environment, flags),
// runs the sorting pipeline with signal-aware cancellation, and renders the
// end-of-run summary as a table or JSON. Configuration scaffolding lives under
// `mediasort config`.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// only surfaced here through commands and flags.
package main
